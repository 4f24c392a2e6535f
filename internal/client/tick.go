package client

import (
	"log"
	"time"

	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

// warnLog prints per-connection protocol warnings (stray pongs, ignored Login
// packets) to stderr. It is not rate-limited.
var warnLog = log.Default()

// Open enqueues the two handshake frames that fix the server's decoder onto the
// Login phase and proceed into login: the handshake intention, then the login
// hello. They are sent back to back without waiting for a reply. The caller (mux)
// is responsible for having just completed the TCP connect and set c.Connected.
func (c *Conn) Open(hostname string, port uint16, scratch *wire.Scratch) error {
	c.Phase = proto.Login

	intention, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(0x00) // handshake intention packet id
		e.V32(proto.ProtocolVersion)
		e.String(hostname)
		e.U16(port)
		e.V32(proto.NextLogin)
	})
	if err != nil {
		return err
	}
	c.Enqueue(intention)

	hello, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(0x00) // login hello packet id
		e.String(c.Name)
		var uuid [16]byte
		e.Raw(uuid[:])
	})
	if err != nil {
		return err
	}
	c.Enqueue(hello)
	return nil
}

// Tick performs one round of autonomous Play activity: a small positional nudge, a
// move-player-pos packet, the ping/defer step, and an optional spam chat message.
// Connections outside Play skip ticking entirely.
func (c *Conn) Tick(now time.Time, scratch *wire.Scratch, spamProb float64) error {
	if c.Phase != proto.Play {
		return nil
	}

	c.X += float64(c.rng.Intn(3) - 1)
	c.Z += float64(c.rng.Intn(3) - 1)

	move, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(proto.PlayMovePlayerPos)
		e.F64(c.X)
		e.F64(c.Y)
		e.F64(c.Z)
		e.Bool(true) // on_ground, sent unconditionally true
	})
	if err != nil {
		return err
	}
	c.Enqueue(move)

	if err := c.tickPing(now, scratch); err != nil {
		return err
	}

	if spamProb > 0 && c.rng.Float64() < spamProb {
		chat, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.PlayChatMessage)
			e.String("quiet, please!")
			e.I64(0) // timestamp scaffolding
			e.I64(0) // salt scaffolding
			e.Bool(false)
		})
		if err != nil {
			return err
		}
		c.Enqueue(chat)
	}
	return nil
}

func (c *Conn) tickPing(now time.Time, scratch *wire.Scratch) error {
	if c.PingInFlight {
		c.PingOverdue = true
		return nil
	}
	return c.sendPing(now, scratch)
}

func (c *Conn) sendPing(now time.Time, scratch *wire.Scratch) error {
	payload := nonZeroPayload(c.rng)
	c.PingPayload = payload
	c.PingSentAt = now
	c.PingInFlight = true
	block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(proto.PlayPingRequest)
		e.U64(payload)
	})
	if err != nil {
		return err
	}
	c.Enqueue(block)
	return nil
}

func (c *Conn) handlePong(payload uint64, now time.Time, scratch *wire.Scratch) error {
	if !c.PingInFlight {
		warnLog.Printf("%s: pong with no ping in flight, ignored", c.Name)
		return nil
	}
	if payload != c.PingPayload {
		// Leave in flight: the matching pong may still arrive.
		warnLog.Printf("%s: pong payload %x does not match ping %x, ignored", c.Name, payload, c.PingPayload)
		return nil
	}
	c.PingInFlight = false
	if c.ResetRTT {
		c.RTTMin = 0
		c.RTTMax = 0
		c.RTTSum = 0
		c.RTTCount = 0
		c.ResetRTT = false
	}
	rtt := now.Sub(c.PingSentAt)
	if c.RTTCount == 0 || rtt < c.RTTMin {
		c.RTTMin = rtt
	}
	if rtt > c.RTTMax {
		c.RTTMax = rtt
	}
	c.RTTSum += rtt
	c.RTTCount++

	if c.PingOverdue {
		c.PingOverdue = false
		return c.sendPing(now, scratch)
	}
	return nil
}
