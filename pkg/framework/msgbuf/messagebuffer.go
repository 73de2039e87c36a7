// Package msgbuf provides a wait-free single-producer/single-consumer
// mailbox for exchanging the latest value of a type between two threads.
//
// Unlike a queue, a Buffer never holds more than one unread value: each
// Write replaces whatever the reader has not yet consumed (latest-wins).
// Neither Write nor Read blocks, and neither allocates after construction,
// which makes the reader side safe to call from a realtime audio callback.
package msgbuf

import (
	"sync/atomic"
)

type cell[T any] struct {
	busy atomic.Bool
	data T
}

// Buffer is a double-buffered latest-value exchange between exactly one
// writer goroutine and exactly one reader goroutine. The two sides must be
// distinct goroutines; neither side may be shared.
//
// The zero value is ready to use, with both cells holding the zero value
// of T. Callers that need defined initial content should seed the buffer
// with two Writes before the reader starts (each Write lands in the cell
// the previous one did not).
type Buffer[T any] struct {
	cells [2]cell[T]

	// pub packs the publish sequence number (bits 1..63) with the index
	// of the most recently published cell (bit 0).
	pub atomic.Uint64

	// wseq is private to the writer, rseq to the reader.
	wseq uint64
	rseq uint64
}

// New returns an empty buffer. Equivalent to new(Buffer[T]); provided for
// symmetry with the rest of the framework's constructors.
func New[T any]() *Buffer[T] {
	return &Buffer[T]{}
}

// claim takes ownership of a cell for the calling side, starting from the
// preferred index and flipping to the other cell if the peer holds it.
// Each side owns at most one cell at a time, so the flip loop settles
// after at most one full turn once the peer releases.
func (b *Buffer[T]) claim(idx int) int {
	for !b.cells[idx].busy.CompareAndSwap(false, true) {
		idx = 1 - idx
	}
	return idx
}

// Write stores v and publishes it as the latest value, discarding any
// previously published value the reader has not consumed. It never blocks
// and never allocates.
func (b *Buffer[T]) Write(v T) {
	b.WriteWith(func(p *T) { *p = v })
}

// WriteWith is Write for callers that must not copy a whole value through
// the stack, or that need to merge into the storage already present in the
// cell (for example, assigning into containers owned by the cell so that
// no reallocation occurs). fill is called with the claimed cell's storage.
func (b *Buffer[T]) WriteWith(fill func(*T)) {
	// Prefer the cell that is not the published latest; the reader may be
	// consuming that one.
	idx := b.claim(1 - int(b.pub.Load()&1))
	fill(&b.cells[idx].data)
	b.wseq++
	b.pub.Store(b.wseq<<1 | uint64(idx))
	b.cells[idx].busy.Store(false)
}

// Read consumes the latest published value, if one has been published
// since the previous successful Read. It calls merge with the cell's
// storage so the caller can move or merge content into its own working
// copy without reallocating, then returns true. If nothing new has been
// published it returns false without calling merge.
func (b *Buffer[T]) Read(merge func(*T)) bool {
	p := b.pub.Load()
	if p>>1 == b.rseq {
		return false
	}
	want := int(p & 1)
	idx := b.claim(want)
	merge(&b.cells[idx].data)
	b.cells[idx].busy.Store(false)
	if idx == want {
		b.rseq = p >> 1
	}
	// If the writer held the published cell we merged from the other one,
	// which holds an adjacent publication; rseq is left alone so the next
	// Read observes the cell we missed.
	return true
}
