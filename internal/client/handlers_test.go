package client

import (
	"testing"
	"time"

	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

func teleportFrame(t *testing.T, teleportID int32, x, y, z float64, yaw, pitch float32, flags uint32) []byte {
	t.Helper()
	s := wire.NewScratch()
	block, err := s.EncodeFrame(func(e *wire.Encoder) {
		e.V32(proto.PlayPlayerPosition)
		e.V32(teleportID)
		e.F64(x)
		e.F64(y)
		e.F64(z)
		e.F64(0)
		e.F64(0)
		e.F64(0)
		e.F32(yaw)
		e.F32(pitch)
		e.U32(flags)
	})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	// strip the length prefix: dispatch takes the raw payload, as Feed would.
	cur := wire.NewCursor(block)
	cur.V32()
	return block[cur.Pos():]
}

func TestTeleportAllFlagCombinations(t *testing.T) {
	scratch := wire.NewScratch()
	for flags := uint32(0); flags < 1<<9; flags++ {
		c := NewConn(0, "bot0")
		c.Phase = proto.Play
		c.X, c.Y, c.Z = 10, 20, 30
		c.Yaw, c.Pitch = 1, 2

		payload := teleportFrame(t, 7, 1, 2, 3, 4, 5, flags)
		cur := wire.NewCursor(payload)
		id := cur.V32()
		if err := c.dispatchPlay(id, cur, payload, time.Now(), scratch); err != nil {
			t.Fatalf("flags=%d: dispatch error: %v", flags, err)
		}

		wantX, wantY, wantZ := 1.0, 2.0, 3.0
		wantYaw, wantPitch := float32(4), float32(5)
		if flags&proto.TeleportRelX != 0 {
			wantX = 10 + 1
		}
		if flags&proto.TeleportRelY != 0 {
			wantY = 20 + 2
		}
		if flags&proto.TeleportRelZ != 0 {
			wantZ = 30 + 3
		}
		if flags&proto.TeleportRelYaw != 0 {
			wantYaw = 1 + 4
		}
		if flags&proto.TeleportRelPitch != 0 {
			wantPitch = 2 + 5
		}
		if c.X != wantX || c.Y != wantY || c.Z != wantZ {
			t.Errorf("flags=%d: position = (%v,%v,%v), want (%v,%v,%v)", flags, c.X, c.Y, c.Z, wantX, wantY, wantZ)
		}
		if c.Yaw != wantYaw || c.Pitch != wantPitch {
			t.Errorf("flags=%d: yaw/pitch = (%v,%v), want (%v,%v)", flags, c.Yaw, c.Pitch, wantYaw, wantPitch)
		}
		if !c.HasPendingWrites() {
			t.Errorf("flags=%d: expected an accept-teleportation response to be queued", flags)
		}
	}
}

func TestKeepAliveEchoesPayload(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play

	block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(proto.PlayKeepAlive)
		e.U64(0x0123456789ABCDEF)
	})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	cur := wire.NewCursor(block)
	cur.V32()
	payload := block[cur.Pos():]
	cur = wire.NewCursor(payload)
	id := cur.V32()

	if err := c.dispatchPlay(id, cur, payload, time.Now(), scratch); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !c.HasPendingWrites() {
		t.Fatal("expected a queued keep-alive response")
	}
	resp := c.HeadWrite()
	rc := wire.NewCursor(resp)
	rc.V32() // length prefix
	respID := rc.V32()
	respVal := rc.U64()
	if respID != proto.PlayKeepAliveResponse || respVal != 0x0123456789ABCDEF {
		t.Errorf("got id=%d val=%x, want id=%d val=%x", respID, respVal, proto.PlayKeepAliveResponse, uint64(0x0123456789ABCDEF))
	}
}

func TestChunkBatchThroughput(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play

	start := time.Now()
	startBlock, _ := scratch.EncodeFrame(func(e *wire.Encoder) { e.V32(proto.PlayChunkBatchStart) })
	cur := wire.NewCursor(startBlock)
	cur.V32()
	payload := startBlock[cur.Pos():]
	cur = wire.NewCursor(payload)
	id := cur.V32()
	if err := c.dispatchPlay(id, cur, payload, start, scratch); err != nil {
		t.Fatalf("chunk_batch_start: %v", err)
	}

	finishBlock, _ := scratch.EncodeFrame(func(e *wire.Encoder) { e.V32(proto.PlayChunkBatchFinished) })
	cur = wire.NewCursor(finishBlock)
	cur.V32()
	payload = finishBlock[cur.Pos():]
	cur = wire.NewCursor(payload)
	id = cur.V32()
	later := start.Add(100 * time.Millisecond)
	if err := c.dispatchPlay(id, cur, payload, later, scratch); err != nil {
		t.Fatalf("chunk_batch_finished: %v", err)
	}
	if !c.HasPendingWrites() {
		t.Fatal("expected a queued chunk-batch-received response")
	}
}

func TestUnknownPacketIDIsWireError(t *testing.T) {
	scratch := wire.NewScratch()
	c := NewConn(0, "bot0")
	c.Phase = proto.Play

	block, _ := scratch.EncodeFrame(func(e *wire.Encoder) { e.V32(0x7FFF) })
	cur := wire.NewCursor(block)
	cur.V32()
	payload := block[cur.Pos():]
	cur = wire.NewCursor(payload)
	id := cur.V32()
	err := c.dispatchPlay(id, cur, payload, time.Now(), scratch)
	if err == nil {
		t.Fatal("expected a wire error for an unknown packet id")
	}
}
