package neptun

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlipBuffer_AppendAndConsume(t *testing.T) {
	b := newFlipBuffer(16)
	copy(b.remaining(), []byte("hello"))
	b.advance(5)

	require.Equal(t, 5, b.size())
	require.Equal(t, "hello", string(b.span(b.pending())))

	b.consume(3)
	require.Equal(t, 2, b.size())
	require.Equal(t, "lo", string(b.span(b.pending())))
}

func TestFlipBuffer_ShiftCompactsAndRebasesRanges(t *testing.T) {
	b := newFlipBuffer(8)
	copy(b.remaining(), []byte("abcdefg"))
	b.advance(7)
	b.consume(5) // pending is now "fg" at [5,7)

	r := b.pending()
	shifted := b.shift()
	require.Equal(t, 5, shifted)

	r = r.shift(shifted)
	require.Equal(t, "fg", string(b.span(r)))
	require.Equal(t, 6, b.freeSpace())
}

func TestFlipBuffer_EnsureFreeCompactsWhenNeeded(t *testing.T) {
	b := newFlipBuffer(8)
	copy(b.remaining(), []byte("abcdefg"))
	b.advance(7)
	b.consume(6) // pending is "g" at [6,7), 1 free byte left

	ok, shiftedBy := b.ensureFree(5)
	require.True(t, ok)
	require.Equal(t, 6, shiftedBy)
	require.Equal(t, "g", string(b.span(b.pending())))
	require.GreaterOrEqual(t, b.freeSpace(), 5)
}

func TestFlipBuffer_EnsureFreeFailsWhenTooSmall(t *testing.T) {
	b := newFlipBuffer(4)
	copy(b.remaining(), []byte("ab"))
	b.advance(2)

	ok, _ := b.ensureFree(10)
	require.False(t, ok)
}
