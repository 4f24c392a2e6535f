package client

import (
	"time"

	"github.com/loadgen/mcbot/internal/proto"
	"github.com/loadgen/mcbot/internal/wire"
)

func (c *Conn) dispatchLogin(id int32, cur *wire.Cursor, payload []byte, scratch *wire.Scratch) error {
	switch id {
	case proto.LoginFinished:
		cur.Skip(16) // UUID, unused
		name := cur.String(proto.MaxNameLen)
		_ = name // server-assigned name is not otherwise used
		if err := cur.Err(); err != nil {
			return wireErr(c.Phase, id, len(payload), cur, "")
		}
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.LoginAcknowledged)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		c.Phase = proto.Config
		return nil
	default:
		// Hello/Key and compression are unsupported; anything else in Login is
		// logged and ignored rather than treated as a wire error, since an
		// offline-mode server never sends us anything else we must act on.
		warnLog.Printf("%s: ignoring login packet %s", c.Name, proto.IDString(id))
		return nil
	}
}

func (c *Conn) dispatchConfig(id int32, cur *wire.Cursor, payload []byte, scratch *wire.Scratch) error {
	switch id {
	case proto.ConfigSelectKnownPacks:
		body := payload[cur.Pos():]
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.ConfigSelectKnownPacksResponse)
			e.Raw(body)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		return nil

	case proto.ConfigResourcePackPush:
		c.pendingPackLo = cur.U64()
		c.pendingPackHi = cur.U64()
		if err := cur.Err(); err != nil {
			return wireErr(c.Phase, id, len(payload), cur, "")
		}
		accepted, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.ConfigResourcePackResponse)
			e.U64(c.pendingPackLo)
			e.U64(c.pendingPackHi)
			e.V32(proto.ResourcePackAccepted)
		})
		if err != nil {
			return err
		}
		c.Enqueue(accepted)
		loaded, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.ConfigResourcePackResponse)
			e.U64(c.pendingPackLo)
			e.U64(c.pendingPackHi)
			e.V32(proto.ResourcePackLoaded)
		})
		if err != nil {
			return err
		}
		c.Enqueue(loaded)
		return nil

	case proto.ConfigFinishConfiguration:
		if cur.Remaining() != 0 {
			return wireErr(c.Phase, id, len(payload), cur, "unexpected trailing bytes")
		}
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.ConfigFinishConfigurationAck)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		c.Phase = proto.Play
		return nil

	case proto.ConfigRegistryData, proto.ConfigUpdateTags, proto.ConfigCustomPayload, proto.ConfigUpdateEnabledFeatures:
		return nil

	default:
		if proto.Known(c.Phase, proto.Clientbound, id) {
			return nil
		}
		return wireErr(c.Phase, id, len(payload), cur, "unknown packet id in phase")
	}
}

func (c *Conn) dispatchPlay(id int32, cur *wire.Cursor, payload []byte, now time.Time, scratch *wire.Scratch) error {
	switch id {
	case proto.PlayKeepAlive:
		v := cur.U64()
		if err := cur.Err(); err != nil {
			return wireErr(c.Phase, id, len(payload), cur, "")
		}
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.PlayKeepAliveResponse)
			e.U64(v)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		return nil

	case proto.PlayPongResponse:
		payloadVal := cur.U64()
		if err := cur.Err(); err != nil {
			return wireErr(c.Phase, id, len(payload), cur, "")
		}
		return c.handlePong(payloadVal, now, scratch)

	case proto.PlayLevelChunkWithLight:
		c.ChunkCount++
		return nil

	case proto.PlayForgetLevelChunk:
		c.ChunkCount--
		return nil

	case proto.PlayChunkBatchStart:
		c.ChunkBatchStart = now
		return nil

	case proto.PlayChunkBatchFinished:
		elapsedNanos := now.Sub(c.ChunkBatchStart).Nanoseconds()
		var throughput float32
		if elapsedNanos > 0 {
			throughput = float32(25_000_000.0 / float64(elapsedNanos))
		}
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.PlayChunkBatchReceived)
			e.F32(throughput)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		return nil

	case proto.PlayGameEvent:
		cur.U8() // event byte, ignored: the generator treats any game-event as "world loaded"
		block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
			e.V32(proto.PlayPlayerLoaded)
		})
		if err != nil {
			return err
		}
		c.Enqueue(block)
		return nil

	case proto.PlayPlayerPosition:
		return c.handleTeleport(cur, payload, id, scratch)

	default:
		if proto.Known(c.Phase, proto.Clientbound, id) {
			return nil
		}
		return wireErr(c.Phase, id, len(payload), cur, "unknown packet id in phase")
	}
}

func (c *Conn) handleTeleport(cur *wire.Cursor, payload []byte, id int32, scratch *wire.Scratch) error {
	teleportID := cur.V32()
	x := cur.F64()
	y := cur.F64()
	z := cur.F64()
	_ = cur.F64() // velocity x, not retained
	_ = cur.F64() // velocity y, not retained
	_ = cur.F64() // velocity z, not retained
	yaw := cur.F32()
	pitch := cur.F32()
	flags := uint32(cur.U32())
	if err := cur.Err(); err != nil {
		return wireErr(c.Phase, id, len(payload), cur, "")
	}

	if flags&proto.TeleportRelX != 0 {
		c.X += x
	} else {
		c.X = x
	}
	if flags&proto.TeleportRelY != 0 {
		c.Y += y
	} else {
		c.Y = y
	}
	if flags&proto.TeleportRelZ != 0 {
		c.Z += z
	} else {
		c.Z = z
	}
	if flags&proto.TeleportRelYaw != 0 {
		c.Yaw += yaw
	} else {
		c.Yaw = yaw
	}
	if flags&proto.TeleportRelPitch != 0 {
		c.Pitch += pitch
	} else {
		c.Pitch = pitch
	}
	// Bits 5..8 (velocities, rotate-vel) are recognized but velocity is not
	// retained by this generator.

	block, err := scratch.EncodeFrame(func(e *wire.Encoder) {
		e.V32(proto.PlayAcceptTeleportation)
		e.V32(teleportID)
	})
	if err != nil {
		return err
	}
	c.Enqueue(block)
	return nil
}
