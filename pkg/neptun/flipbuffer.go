package neptun

// flipBuffer is an append-only byte buffer with a movable consumption
// frontier: bytes before begin are already delivered and logically gone,
// bytes in [begin, end) are pending, and bytes from end to the capacity are
// free space to append into. shift compacts the pending region back to
// index 0 once free space runs low, which is the only copy this type ever
// does; callers that hold BufferRange values spanning the shift must adjust
// them with BufferRange.shift.
type flipBuffer struct {
	data  []byte
	begin int
	end   int
}

func newFlipBuffer(capacity int) *flipBuffer {
	return &flipBuffer{data: make([]byte, capacity)}
}

// remaining is the free space available to append into.
func (b *flipBuffer) remaining() []byte {
	return b.data[b.end:]
}

// advance records that n freshly appended bytes (written into remaining())
// are now part of the pending region.
func (b *flipBuffer) advance(n int) {
	b.end += n
}

// consume drops the first n pending bytes; they were delivered and are no
// longer addressable by any BufferRange.
func (b *flipBuffer) consume(n int) {
	b.begin += n
	if b.begin > b.end {
		b.begin = b.end
	}
}

// span returns the bytes addressed by r. r must be relative to the current
// shift generation, i.e. returned by pending() or not yet invalidated by a
// call to shift.
func (b *flipBuffer) span(r BufferRange) []byte {
	return b.data[r.Begin:r.End]
}

// pending is the full range of undelivered bytes.
func (b *flipBuffer) pending() BufferRange {
	return BufferRange{Begin: b.begin, End: b.end}
}

// size is how many undelivered bytes the buffer holds.
func (b *flipBuffer) size() int {
	return b.end - b.begin
}

// freeSpace is how many more bytes can be appended before a shift is
// required.
func (b *flipBuffer) freeSpace() int {
	return len(b.data) - b.end
}

// shift compacts the pending region down to index 0 and returns the amount
// everything moved by, so callers can rebase any BufferRange they're
// holding via BufferRange.shift.
func (b *flipBuffer) shift() int {
	by := b.begin
	if by == 0 {
		return 0
	}
	n := copy(b.data, b.data[b.begin:b.end])
	b.begin = 0
	b.end = n
	return by
}

// ensureFree compacts the buffer if necessary to make room for n more
// appended bytes. It reports whether that room exists even after
// compaction (false means the buffer is simply too small) and how far
// everything moved by, for callers rebasing BufferRange values they hold.
func (b *flipBuffer) ensureFree(n int) (ok bool, shiftedBy int) {
	if b.freeSpace() >= n {
		return true, 0
	}
	shiftedBy = b.shift()
	return b.freeSpace() >= n, shiftedBy
}
