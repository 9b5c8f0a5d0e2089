package sequence

// Ring is a fixed-capacity buffer that keeps the most recent values in
// insertion order. Pushing into a full ring evicts the oldest value.
type Ring[T any] struct {
	items []T
	head  int
	size  int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends value and returns the evicted element, if any.
func (r *Ring[T]) Push(value T) (evicted T, ok bool) {
	if r.size == len(r.items) {
		evicted = r.items[r.head]
		ok = true
		r.items[r.head] = value
		r.head = (r.head + 1) % len(r.items)
		return evicted, ok
	}
	r.items[(r.head+r.size)%len(r.items)] = value
	r.size++
	return evicted, false
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.items) }

func (r *Ring[T]) IsFull() bool { return r.size == len(r.items) }

// At returns the i-th oldest element.
func (r *Ring[T]) At(i int) (T, bool) {
	if i < 0 || i >= r.size {
		var zero T
		return zero, false
	}
	return r.items[(r.head+i)%len(r.items)], true
}

// Collect copies the contents oldest first.
func (r *Ring[T]) Collect() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.head+i)%len(r.items)]
	}
	return out
}

func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.size = 0
}
