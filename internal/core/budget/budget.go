// Package budget arbitrates the concurrent visual entity budget across
// independent emitter categories. Categories never share headroom.
package budget

import (
	"sort"
	"sync"

	"github.com/zeusync/governor/internal/core/observability/log"
)

// Well-known emitter categories.
const (
	CategoryFireworks     = "fireworks"
	CategoryParticles     = "particles"
	CategoryFloatingText  = "floating_text"
	CategoryPhysicsBodies = "physics_bodies"
)

// DefaultCaps are the per-category capacities used when none are configured.
func DefaultCaps() map[string]int {
	return map[string]int{
		CategoryFireworks:     180,
		CategoryParticles:     300,
		CategoryFloatingText:  40,
		CategoryPhysicsBodies: 120,
	}
}

type category struct {
	allocated int
	cap       int
}

// Usage is a snapshot of one category.
type Usage struct {
	Category  string
	Allocated int
	Cap       int
}

func (u Usage) Available() int { return u.Cap - u.Allocated }

// Budget holds one counter per category. Allocation is all-or-nothing and
// allocated never exceeds cap.
type Budget struct {
	mu         sync.Mutex
	categories map[string]*category
	logger     log.Log
}

func New(caps map[string]int, logger log.Log) *Budget {
	if logger == nil {
		logger = log.Nop()
	}
	b := &Budget{
		categories: make(map[string]*category, len(caps)),
		logger:     logger.With(log.String("component", "budget")),
	}
	for name, c := range caps {
		if c < 0 {
			c = 0
		}
		b.categories[name] = &category{cap: c}
	}
	return b
}

// Allocate grants n entities in category only if the whole request fits.
// Unknown categories and negative requests are denied.
func (b *Budget) Allocate(name string, n int) bool {
	if n < 0 {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.categories[name]
	if !ok {
		b.logger.Debug("allocate on unknown category", log.String("category", name))
		return false
	}
	if c.allocated+n > c.cap {
		return false
	}
	c.allocated += n
	return true
}

// Deallocate returns n entities, clamping the counter at zero.
func (b *Budget) Deallocate(name string, n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.categories[name]
	if !ok {
		return
	}
	if n > c.allocated {
		b.logger.Warn("deallocate exceeds allocation",
			log.String("category", name),
			log.Int("allocated", c.allocated),
			log.Int("requested", n))
		c.allocated = 0
		return
	}
	c.allocated -= n
}

// Available reports cap - allocated, or 0 for unknown categories.
func (b *Budget) Available(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.categories[name]
	if !ok {
		return 0
	}
	return c.cap - c.allocated
}

// Release zeroes a category, for forced clears of every live entity.
func (b *Budget) Release(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.categories[name]; ok {
		c.allocated = 0
	}
}

// Snapshot lists every category sorted by name.
func (b *Budget) Snapshot() []Usage {
	b.mu.Lock()
	out := make([]Usage, 0, len(b.categories))
	for name, c := range b.categories {
		out = append(out, Usage{Category: name, Allocated: c.allocated, Cap: c.cap})
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
