package wire

import "fmt"

// MaxFramePayload is the programming-error ceiling for an outbound payload: the
// scratch encode buffer is sized to this, and anything that would fill it is a bug
// in the generator, not a wire condition. See Scratch.
const MaxFramePayload = 2 * 1024 * 1024

// maxPrefixBytes is the wire maximum for a v32 length prefix (5 bytes).
const maxPrefixBytes = 5

// Reassembler incrementally reconstructs length-prefixed frames from an inbound
// byte stream that may be split across arbitrarily many reads.
type Reassembler struct {
	length      int32 // expected payload length of the frame in progress; 0 when unknown
	prefixValue uint32
	prefixBytes int // continuation bytes of the length prefix consumed so far; 0 once complete
	stash       []byte
	stashFilled int
}

// Pending reports whether a frame is partway through reassembly (mid-prefix or
// mid-payload). A fresh or just-completed Reassembler returns false.
func (r *Reassembler) Pending() bool {
	return r.prefixBytes > 0 || r.length != 0 || r.stash != nil
}

func (r *Reassembler) feedLengthByte(b byte) (complete bool, err error) {
	r.prefixValue |= uint32(b&0x7f) << (7 * uint(r.prefixBytes))
	r.prefixBytes++
	if b&0x80 == 0 {
		length := int32(r.prefixValue)
		r.prefixBytes = 0
		r.prefixValue = 0
		// A top-bit-set prefixValue wraps negative as int32, and any value
		// above the scratch-buffer ceiling can never be satisfied by a real
		// frame; both are wire errors, not a reason to make(need) and panic.
		if length < 0 || int(length) > MaxFramePayload {
			return true, fmt.Errorf("declared frame length %d exceeds %d byte ceiling", uint32(length), MaxFramePayload)
		}
		r.length = length
		return true, nil
	}
	if r.prefixBytes >= maxPrefixBytes {
		return false, fmt.Errorf("packet too large: length prefix exceeds %d bytes", maxPrefixBytes)
	}
	return false, nil
}

// Feed consumes newly read bytes and returns zero or more complete frame payloads
// (length prefix already stripped), in wire order. Any trailing partial frame is
// retained internally and completed by a later Feed call. An error means the
// connection must be closed ("packet too large").
func (r *Reassembler) Feed(data []byte) ([][]byte, error) {
	var frames [][]byte
	for len(data) > 0 {
		if r.stash != nil {
			n := copy(r.stash[r.stashFilled:], data)
			r.stashFilled += n
			data = data[n:]
			if r.stashFilled == len(r.stash) {
				frames = append(frames, r.stash)
				r.stash = nil
				r.stashFilled = 0
				r.length = 0
			}
			continue
		}
		if r.length == 0 {
			b := data[0]
			data = data[1:]
			done, err := r.feedLengthByte(b)
			if err != nil {
				return frames, err
			}
			if !done {
				continue
			}
			if r.length == 0 {
				// A zero-length frame is malformed (every real frame carries at
				// least a packet id), but framing-wise it is simply empty.
				frames = append(frames, []byte{})
			}
			continue
		}
		need := int(r.length)
		if len(data) >= need {
			payload := make([]byte, need)
			copy(payload, data[:need])
			frames = append(frames, payload)
			data = data[need:]
			r.length = 0
		} else {
			r.stash = make([]byte, need)
			r.stashFilled = copy(r.stash, data)
			data = nil
		}
	}
	return frames, nil
}

// Scratch is a single reusable outbound encode buffer, shared across every
// connection because the generator is single-threaded and each dispatch only ever
// encodes one packet at a time (see package client). EncodeFrame enforces that
// precondition instead of taking a lock.
type Scratch struct {
	buf      [MaxFramePayload]byte
	encoding bool
}

// NewScratch allocates a scratch encode buffer.
func NewScratch() *Scratch {
	return &Scratch{}
}

// EncodeFrame runs fill against the scratch buffer, then returns a new
// length-prefixed block (prefix || payload) suitable for the outbound queue.
// It panics if called reentrantly, which would indicate a programming error, not a
// wire condition — the generator never nests packet encodes.
func (s *Scratch) EncodeFrame(fill func(e *Encoder)) ([]byte, error) {
	if s.encoding {
		panic("wire: nested Scratch.EncodeFrame call")
	}
	s.encoding = true
	defer func() { s.encoding = false }()

	enc := NewEncoder(s.buf[:])
	fill(enc)
	if enc.Truncated() {
		return nil, fmt.Errorf("packet payload truncated at %d bytes: programming error", MaxFramePayload)
	}
	payload := enc.Bytes()

	block := make([]byte, V32Len(int32(len(payload)))+len(payload))
	prefixEnc := NewEncoder(block)
	prefixEnc.V32(int32(len(payload)))
	copy(block[prefixEnc.Len():], payload)
	return block, nil
}
