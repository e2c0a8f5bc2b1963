package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactSingleByteMode(t *testing.T) {
	for _, n := range []uint64{0, 1, 42, 63} {
		cur := NewCursor(compact(n))
		got, err := cur.CompactUint()
		require.NoError(t, err)
		assert.Equal(t, n, got)
		assert.Equal(t, 0, cur.Remaining())
	}
}

func TestCompactTwoByteMode(t *testing.T) {
	for _, n := range []uint64{64, 255, 1000, 16383} {
		cur := NewCursor(compact(n))
		got, err := cur.CompactUint()
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestCompactFourByteMode(t *testing.T) {
	for _, n := range []uint64{16384, 1 << 20, 1<<30 - 1} {
		cur := NewCursor(compact(n))
		got, err := cur.CompactUint()
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestCompactBigIntMode(t *testing.T) {
	for _, n := range []uint64{1 << 30, 1 << 32, 1<<63 + 7} {
		cur := NewCursor(compact(n))
		got, err := cur.CompactUint()
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestCompactU128Max(t *testing.T) {
	// 0x33 announces 16 payload bytes.
	payload := append([]byte{0x33}, mustHex("ffffffffffffffffffffffffffffffff")...)
	cur := NewCursor(payload)

	v, err := cur.CompactBig()
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463463374607431768211455", v.String())

	// The same value must not pass the u64-capped reader.
	cur = NewCursor(payload)
	_, err = cur.CompactUint()
	assert.Error(t, err)
}

func TestCompactTruncatedInput(t *testing.T) {
	// Two-byte mode with the second byte missing.
	cur := NewCursor([]byte{0x01})
	_, err := cur.CompactUint()
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestCursorTakeBounds(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3})

	got, err := cur.Take(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
	assert.Equal(t, 1, cur.Remaining())

	_, err = cur.Take(2)
	assert.ErrorIs(t, err, ErrUnexpectedEOF)
	// A failed read must not advance.
	assert.Equal(t, 1, cur.Remaining())
}

func TestCursorLittleEndianReads(t *testing.T) {
	cur := NewCursor(concat(u32le(0xdeadbeef), u64le(1<<40)))

	v32, err := cur.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xdeadbeef), v32)

	v64, err := cur.Uint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), v64)
}

func TestCursorForkJoin(t *testing.T) {
	cur := NewCursor([]byte{1, 2, 3, 4})
	_, err := cur.Byte()
	require.NoError(t, err)

	fork := cur.Fork()
	_, err = fork.Take(2)
	require.NoError(t, err)

	// Parent stays put until joined.
	assert.Equal(t, 1, cur.Offset(), "fork must not advance parent")
	cur.Join(fork)
	assert.Equal(t, 3, cur.Offset())
}
