// Package history provides bounded per-entity sample retention and
// baseline scoring over the retained window.
package history

// DefaultCapacity bounds each entity's history window.
const DefaultCapacity = 1000

// Buffer is a fixed-capacity append-only ring. Appending to a full buffer
// evicts the oldest sample. A Buffer is owned by exactly one monitoring
// goroutine and is not safe for concurrent use.
type Buffer[T any] struct {
	items   []T
	head    int
	count   int
	evicted uint64
}

// NewBuffer creates a Buffer with the given capacity.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Append adds item, evicting the oldest sample if the buffer is full.
func (b *Buffer[T]) Append(item T) {
	if b.count < len(b.items) {
		b.items[(b.head+b.count)%len(b.items)] = item
		b.count++
		return
	}
	b.items[b.head] = item
	b.head = (b.head + 1) % len(b.items)
	b.evicted++
}

// Len returns the number of retained samples.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Evicted returns how many samples have been dropped to make room.
func (b *Buffer[T]) Evicted() uint64 {
	return b.evicted
}

// Last returns the newest sample, if any.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}
	return b.items[(b.head+b.count-1)%len(b.items)], true
}

// Items returns the retained samples, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// LastN returns up to n of the newest samples, oldest first.
func (b *Buffer[T]) LastN(n int) []T {
	if n > b.count {
		n = b.count
	}
	if n < 0 {
		n = 0
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[(b.head+b.count-n+i)%len(b.items)]
	}
	return out
}

// Series maps the retained samples to a scalar series, oldest first.
func (b *Buffer[T]) Series(f func(T) float64) []float64 {
	out := make([]float64, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = f(b.items[(b.head+i)%len(b.items)])
	}
	return out
}
