package budget

import "sync"

// Allocator is the admission surface an Emitter draws from.
type Allocator interface {
	Allocate(category string, n int) bool
	Deallocate(category string, n int)
	Available(category string) int
}

var _ Allocator = (*Budget)(nil)

// Emitter tracks the entities one effect owns in a category so that every
// grant is returned: on natural retirement, and on Clear when the effect is
// torn down or reset. A nil Allocator means no budget is configured.
type Emitter struct {
	alloc    Allocator
	category string

	mu   sync.Mutex
	live int
}

func NewEmitter(alloc Allocator, category string) *Emitter {
	return &Emitter{alloc: alloc, category: category}
}

// Spawn asks for exactly n entities.
func (e *Emitter) Spawn(n int) bool {
	if n <= 0 {
		return n == 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alloc != nil && !e.alloc.Allocate(e.category, n) {
		return false
	}
	e.live += n
	return true
}

// SpawnUpTo shrinks the request to what is available and returns the
// number granted, possibly zero.
func (e *Emitter) SpawnUpTo(n int) int {
	if n <= 0 {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alloc == nil {
		e.live += n
		return n
	}
	if avail := e.alloc.Available(e.category); avail < n {
		n = avail
	}
	if n <= 0 || !e.alloc.Allocate(e.category, n) {
		return 0
	}
	e.live += n
	return n
}

// Retire returns n entities that left the update loop.
func (e *Emitter) Retire(n int) {
	if n <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > e.live {
		n = e.live
	}
	e.live -= n
	if e.alloc != nil && n > 0 {
		e.alloc.Deallocate(e.category, n)
	}
}

// Clear returns every live entity.
func (e *Emitter) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alloc != nil && e.live > 0 {
		e.alloc.Deallocate(e.category, e.live)
	}
	e.live = 0
}

func (e *Emitter) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

func (e *Emitter) Category() string { return e.category }
