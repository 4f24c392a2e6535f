// Package wire implements the generator's hand-rolled protocol codec: fixed-width
// big-endian primitives, continuation-encoded variable-length integers,
// length-prefixed strings, and the packed block-position encoding.
package wire

import (
	"fmt"
	"math"
)

// DecodeError is the first-and-only diagnostic a Cursor records. Once set, every
// subsequent read on that Cursor is a no-op that returns the zero value.
type DecodeError struct {
	Pos int
	Msg string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at byte %d: %s", e.Pos, e.Msg)
}

// Cursor reads primitive values from a fixed byte slice, advancing its own position.
// It is first-error-wins: once a read fails, Err() is non-nil and every later read
// returns the zero value without touching pos.
type Cursor struct {
	buf []byte
	pos int
	err *DecodeError
}

// NewCursor wraps buf for sequential decoding.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Err returns the first decode error encountered, or nil.
func (c *Cursor) Err() error {
	if c.err == nil {
		return nil
	}
	return c.err
}

// Pos returns the current read position (the error position, if Err() != nil).
func (c *Cursor) Pos() int {
	return c.pos
}

// Remaining returns the number of unconsumed bytes.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) fail(msg string) {
	if c.err != nil {
		return
	}
	c.err = &DecodeError{Pos: c.pos, Msg: msg}
}

func (c *Cursor) require(n int) bool {
	if c.err != nil {
		return false
	}
	if c.pos+n > len(c.buf) {
		c.fail(fmt.Sprintf("short read: need %d bytes, have %d", n, len(c.buf)-c.pos))
		return false
	}
	return true
}

// U8 reads one unsigned byte.
func (c *Cursor) U8() uint8 {
	if !c.require(1) {
		return 0
	}
	v := c.buf[c.pos]
	c.pos++
	return v
}

// I8 reads one signed byte.
func (c *Cursor) I8() int8 {
	return int8(c.U8())
}

// Bool reads one byte; nonzero means true.
func (c *Cursor) Bool() bool {
	return c.U8() != 0
}

// U16 reads a big-endian uint16.
func (c *Cursor) U16() uint16 {
	if !c.require(2) {
		return 0
	}
	v := uint16(c.buf[c.pos])<<8 | uint16(c.buf[c.pos+1])
	c.pos += 2
	return v
}

// I16 reads a big-endian int16.
func (c *Cursor) I16() int16 {
	return int16(c.U16())
}

// U32 reads a big-endian uint32.
func (c *Cursor) U32() uint32 {
	if !c.require(4) {
		return 0
	}
	b := c.buf[c.pos : c.pos+4]
	v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	c.pos += 4
	return v
}

// I32 reads a big-endian int32.
func (c *Cursor) I32() int32 {
	return int32(c.U32())
}

// F32 reads a big-endian IEEE-754 float32.
func (c *Cursor) F32() float32 {
	return math.Float32frombits(c.U32())
}

// U64 reads a big-endian uint64.
func (c *Cursor) U64() uint64 {
	if !c.require(8) {
		return 0
	}
	b := c.buf[c.pos : c.pos+8]
	v := uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
	c.pos += 8
	return v
}

// I64 reads a big-endian int64.
func (c *Cursor) I64() int64 {
	return int64(c.U64())
}

// F64 reads a big-endian IEEE-754 float64.
func (c *Cursor) F64() float64 {
	return math.Float64frombits(c.U64())
}

// V32 reads a 7-bit continuation-encoded variable-length int32 (1-5 bytes).
func (c *Cursor) V32() int32 {
	var result uint32
	for i := 0; i < 5; i++ {
		if c.err != nil {
			return 0
		}
		b := c.U8()
		if c.err != nil {
			return 0
		}
		// Once the remaining width is under 7 bits, any value bit above that
		// width would be lost to the uint32 shift below instead of reported
		// as an error: reject it explicitly.
		if remaining := 32 - 7*i; remaining < 7 {
			if b&(0x7f&^((1<<uint(remaining))-1)) != 0 {
				c.fail("v32 overflow: value exceeds 32 bits")
				return 0
			}
		}
		result |= uint32(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return int32(result)
		}
	}
	c.fail("v32 overflow: varint too large")
	return 0
}

// V64 reads a 7-bit continuation-encoded variable-length int64 (1-10 bytes).
func (c *Cursor) V64() int64 {
	var result uint64
	for i := 0; i < 10; i++ {
		if c.err != nil {
			return 0
		}
		b := c.U8()
		if c.err != nil {
			return 0
		}
		if remaining := 64 - 7*i; remaining < 7 {
			if b&(0x7f&^((1<<uint(remaining))-1)) != 0 {
				c.fail("v64 overflow: value exceeds 64 bits")
				return 0
			}
		}
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return int64(result)
		}
	}
	c.fail("v64 overflow: varint too large")
	return 0
}

// String reads a v32-length-prefixed UTF-8 string, rejecting negative lengths and
// lengths beyond max.
func (c *Cursor) String(max int) string {
	n := c.V32()
	if c.err != nil {
		return ""
	}
	if n < 0 {
		c.fail("negative string length")
		return ""
	}
	if int(n) > max {
		c.fail(fmt.Sprintf("string length %d exceeds max %d", n, max))
		return ""
	}
	if !c.require(int(n)) {
		return ""
	}
	s := string(c.buf[c.pos : c.pos+int(n)])
	c.pos += int(n)
	return s
}

// Position decodes the packed 26/12/26-bit block position: x in the high 26 bits,
// z in the next 26 bits, y in the low 12 bits, each sign-extended.
func (c *Cursor) Position() (x, y, z int32) {
	v := c.U64()
	if c.err != nil {
		return 0, 0, 0
	}
	x = signExtend(int64(v>>38), 26)
	z = signExtend(int64(v<<26>>38), 26)
	y = signExtend(int64(v<<52>>52), 12)
	return x, y, z
}

// signExtend sign-extends the low `bits` bits of v, which implementations without a
// native signed right-shift must perform manually from the high bit of the field.
func signExtend(v int64, bits uint) int32 {
	shift := 64 - bits
	return int32(v << shift >> shift)
}

// Skip advances the cursor by n bytes, failing if not enough remain.
func (c *Cursor) Skip(n int) {
	if !c.require(n) {
		return
	}
	c.pos += n
}

// Bytes reads n raw bytes.
func (c *Cursor) Bytes(n int) []byte {
	if !c.require(n) {
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}
