package wire

import "math"

// Encoder writes primitive values into a fixed destination buffer. Once the buffer
// is exhausted, Truncated() is true and every further write is a no-op — there is
// no panic and no silent resize.
type Encoder struct {
	buf       []byte
	pos       int
	truncated bool
}

// NewEncoder wraps dst for sequential encoding. dst's capacity is the hard ceiling.
func NewEncoder(dst []byte) *Encoder {
	return &Encoder{buf: dst}
}

// Truncated reports whether any write ran out of destination space.
func (e *Encoder) Truncated() bool {
	return e.truncated
}

// Len returns the number of bytes written so far.
func (e *Encoder) Len() int {
	return e.pos
}

// Bytes returns the written prefix of the destination buffer.
func (e *Encoder) Bytes() []byte {
	return e.buf[:e.pos]
}

func (e *Encoder) reserve(n int) bool {
	if e.truncated {
		return false
	}
	if e.pos+n > len(e.buf) {
		e.truncated = true
		return false
	}
	return true
}

// U8 writes one unsigned byte.
func (e *Encoder) U8(v uint8) {
	if !e.reserve(1) {
		return
	}
	e.buf[e.pos] = v
	e.pos++
}

// I8 writes one signed byte.
func (e *Encoder) I8(v int8) { e.U8(uint8(v)) }

// Bool writes one byte: 1 for true, 0 for false.
func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
	} else {
		e.U8(0)
	}
}

// U16 writes a big-endian uint16.
func (e *Encoder) U16(v uint16) {
	if !e.reserve(2) {
		return
	}
	e.buf[e.pos] = byte(v >> 8)
	e.buf[e.pos+1] = byte(v)
	e.pos += 2
}

// I16 writes a big-endian int16.
func (e *Encoder) I16(v int16) { e.U16(uint16(v)) }

// U32 writes a big-endian uint32.
func (e *Encoder) U32(v uint32) {
	if !e.reserve(4) {
		return
	}
	e.buf[e.pos] = byte(v >> 24)
	e.buf[e.pos+1] = byte(v >> 16)
	e.buf[e.pos+2] = byte(v >> 8)
	e.buf[e.pos+3] = byte(v)
	e.pos += 4
}

// I32 writes a big-endian int32.
func (e *Encoder) I32(v int32) { e.U32(uint32(v)) }

// F32 writes a big-endian IEEE-754 float32.
func (e *Encoder) F32(v float32) { e.U32(math.Float32bits(v)) }

// U64 writes a big-endian uint64.
func (e *Encoder) U64(v uint64) {
	if !e.reserve(8) {
		return
	}
	e.buf[e.pos] = byte(v >> 56)
	e.buf[e.pos+1] = byte(v >> 48)
	e.buf[e.pos+2] = byte(v >> 40)
	e.buf[e.pos+3] = byte(v >> 32)
	e.buf[e.pos+4] = byte(v >> 24)
	e.buf[e.pos+5] = byte(v >> 16)
	e.buf[e.pos+6] = byte(v >> 8)
	e.buf[e.pos+7] = byte(v)
	e.pos += 8
}

// I64 writes a big-endian int64.
func (e *Encoder) I64(v int64) { e.U64(uint64(v)) }

// F64 writes a big-endian IEEE-754 float64.
func (e *Encoder) F64(v float64) { e.U64(math.Float64bits(v)) }

// V32 writes a 7-bit continuation-encoded variable-length int32.
func (e *Encoder) V32(v int32) {
	u := uint32(v)
	for {
		if u&^0x7f == 0 {
			e.U8(uint8(u))
			return
		}
		e.U8(uint8(u&0x7f) | 0x80)
		u >>= 7
	}
}

// V64 writes a 7-bit continuation-encoded variable-length int64.
func (e *Encoder) V64(v int64) {
	u := uint64(v)
	for {
		if u&^0x7f == 0 {
			e.U8(uint8(u))
			return
		}
		e.U8(uint8(u&0x7f) | 0x80)
		u >>= 7
	}
}

// Raw writes b verbatim, with no length prefix.
func (e *Encoder) Raw(b []byte) {
	if !e.reserve(len(b)) {
		return
	}
	copy(e.buf[e.pos:], b)
	e.pos += len(b)
}

// String writes a v32-length-prefixed UTF-8 string.
func (e *Encoder) String(s string) {
	e.V32(int32(len(s)))
	if !e.reserve(len(s)) {
		return
	}
	copy(e.buf[e.pos:], s)
	e.pos += len(s)
}

// Position packs x (26 bits), z (26 bits), y (12 bits) into a big-endian uint64.
func (e *Encoder) Position(x, y, z int32) {
	v := (uint64(x)&0x3ffffff)<<38 | (uint64(z)&0x3ffffff)<<12 | (uint64(y) & 0xfff)
	e.U64(v)
}

// V32Len reports how many bytes V32 would write for v, without writing anything.
func V32Len(v int32) int {
	u := uint32(v)
	n := 1
	for u&^0x7f != 0 {
		u >>= 7
		n++
	}
	return n
}
