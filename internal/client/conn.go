// Package client implements the per-connection protocol state machine: phase
// transitions, the inbound/outbound packet handlers, and the tick body that drives
// steady-state Play activity. It owns no sockets — package mux performs the
// actual reads/writes and calls into a Conn to interpret or produce bytes.
package client

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

// Conn is one simulated client connection. A Conn in phase Free holds no socket, no
// buffers, and no queued bytes, per the data-model invariant.
type Conn struct {
	Index int
	Name  string // prefix + index, e.g. "bot3"

	Phase proto.Phase

	// FD is the raw socket file descriptor, or -1 in Free. Owned and mutated by
	// package mux; Conn never calls into the network itself.
	FD        int
	Connected bool

	// ConnID is a diagnostic identifier derived from the socket's kernel cookie
	// (see package connid), set once Connected becomes true. Empty in Free.
	ConnID string

	reasm wire.Reassembler

	outq      [][]byte
	outCursor int

	EntityID   int32
	X, Y, Z    float64
	Yaw, Pitch float32

	ChunkCount      int
	ChunkBatchStart time.Time

	// pendingPackLo/Hi stash the resource pack UUID between the push and the
	// two responses, stored low-then-high.
	pendingPackLo, pendingPackHi uint64

	PingInFlight bool
	PingOverdue  bool
	ResetRTT     bool
	PingPayload  uint64
	PingSentAt   time.Time

	RTTMin, RTTMax, RTTSum time.Duration
	RTTCount               int

	rng *rand.Rand
}

// NewConn creates a connection record in phase Free. Each connection gets its own
// random source (seeded from its slot index) so ping payloads, movement jitter,
// and spam rolls are reproducible per slot across runs.
func NewConn(index int, name string) *Conn {
	return &Conn{
		Index: index,
		Name:  name,
		Phase: proto.Free,
		FD:    -1,
		rng:   rand.New(rand.NewSource(int64(index)*2654435761 + 1)),
	}
}

// Reset returns the connection to Free, discarding all buffers and queued bytes.
func (c *Conn) Reset() {
	c.Phase = proto.Free
	c.FD = -1
	c.Connected = false
	c.ConnID = ""
	c.reasm = wire.Reassembler{}
	c.outq = nil
	c.outCursor = 0
	c.ChunkCount = 0
	c.PingInFlight = false
	c.PingOverdue = false
	c.PingPayload = 0
}

// Enqueue appends an already-framed block (length prefix + payload) to the
// outbound queue. The queue is FIFO; HasPendingWrites tells the multiplexer
// whether write-readiness should stay armed.
func (c *Conn) Enqueue(block []byte) {
	c.outq = append(c.outq, block)
}

// HasPendingWrites reports whether the outbound queue is nonempty.
func (c *Conn) HasPendingWrites() bool {
	return len(c.outq) > 0
}

// HeadWrite returns the unwritten remainder of the queue's head block.
func (c *Conn) HeadWrite() []byte {
	if len(c.outq) == 0 {
		return nil
	}
	return c.outq[0][c.outCursor:]
}

// AdvanceWrite records that n more bytes of the head block were written,
// popping it off the queue once fully flushed.
func (c *Conn) AdvanceWrite(n int) {
	c.outCursor += n
	if c.outCursor >= len(c.outq[0]) {
		c.outq = c.outq[1:]
		c.outCursor = 0
	}
}

// Feed hands newly read bytes to the reassembler and dispatches each complete
// frame in order. It stops and returns the first error (a *proto.WireError for a
// malformed packet; framing and encode errors are returned as plain errors), at
// which point the caller must close the connection.
func (c *Conn) Feed(data []byte, now time.Time, scratch *wire.Scratch) error {
	frames, err := c.reasm.Feed(data)
	if err != nil {
		return err
	}
	for _, payload := range frames {
		if err := c.dispatch(payload, now, scratch); err != nil {
			return err
		}
	}
	return nil
}

func (c *Conn) dispatch(payload []byte, now time.Time, scratch *wire.Scratch) error {
	cur := wire.NewCursor(payload)
	id := cur.V32()
	if err := cur.Err(); err != nil {
		return proto.NewWireError(c.Phase, -1, len(payload), cur.Pos(), err.Error())
	}
	switch c.Phase {
	case proto.Login:
		return c.dispatchLogin(id, cur, payload, scratch)
	case proto.Config:
		return c.dispatchConfig(id, cur, payload, scratch)
	case proto.Play:
		return c.dispatchPlay(id, cur, payload, now, scratch)
	default:
		return fmt.Errorf("dispatch called on phase %s", c.Phase)
	}
}

func wireErr(phase proto.Phase, id int32, frameLen int, cur *wire.Cursor, msg string) error {
	pos := cur.Pos()
	if err := cur.Err(); err != nil {
		pos = err.(*wire.DecodeError).Pos
		if msg == "" {
			msg = err.Error()
		}
	}
	return proto.NewWireError(phase, id, frameLen, pos, msg)
}

// nonZeroPayload draws a ping payload biased away from zero.
func nonZeroPayload(rng *rand.Rand) uint64 {
	v := rng.Uint64()
	if v == 0 {
		v = 1
	}
	return v
}
