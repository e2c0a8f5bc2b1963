package scale

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Cursor is a read position over an immutable SCALE-encoded byte slice.
// It is owned by a single decode call and never shared.
type Cursor struct {
	data []byte
	off  int
}

// NewCursor positions a cursor at the start of b. The cursor reads b but
// never mutates it.
func NewCursor(b []byte) *Cursor {
	return &Cursor{data: b}
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.off
}

// Offset returns the current read position.
func (c *Cursor) Offset() int {
	return c.off
}

// Fork returns an independent cursor at the same position, used for
// speculative decoding that must not advance the parent on failure.
func (c *Cursor) Fork() *Cursor {
	return &Cursor{data: c.data, off: c.off}
}

// Join advances the cursor to the position of a fork previously taken from it.
func (c *Cursor) Join(fork *Cursor) {
	c.off = fork.off
}

// Take consumes and returns the next n bytes.
func (c *Cursor) Take(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes, have %d: %w", n, c.Remaining(), ErrUnexpectedEOF)
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

// Byte consumes a single byte.
func (c *Cursor) Byte() (byte, error) {
	if c.Remaining() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

// Uint16 consumes a little-endian u16.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Uint32 consumes a little-endian u32.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Uint64 consumes a little-endian u64.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// CompactBig consumes a SCALE compact-encoded unsigned integer of any size.
func (c *Cursor) CompactBig() (*big.Int, error) {
	b0, err := c.Byte()
	if err != nil {
		return nil, err
	}
	switch b0 & 0b11 {
	case 0b00:
		return big.NewInt(int64(b0 >> 2)), nil
	case 0b01:
		b1, err := c.Byte()
		if err != nil {
			return nil, err
		}
		v := (uint64(b0) | uint64(b1)<<8) >> 2
		return new(big.Int).SetUint64(v), nil
	case 0b10:
		rest, err := c.Take(3)
		if err != nil {
			return nil, err
		}
		v := (uint64(b0) | uint64(rest[0])<<8 | uint64(rest[1])<<16 | uint64(rest[2])<<24) >> 2
		return new(big.Int).SetUint64(v), nil
	default:
		n := int(b0>>2) + 4
		raw, err := c.Take(n)
		if err != nil {
			return nil, err
		}
		return new(big.Int).SetBytes(reverseBytes(raw)), nil
	}
}

// CompactUint consumes a compact integer that must fit in a uint64, as used
// for collection lengths and indices.
func (c *Cursor) CompactUint() (uint64, error) {
	v, err := c.CompactBig()
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("compact value %s overflows u64", v)
	}
	return v.Uint64(), nil
}

// reverseBytes returns a big-endian copy of little-endian input.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
