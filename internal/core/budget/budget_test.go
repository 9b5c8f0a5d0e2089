package budget

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioFireworksAdmission(t *testing.T) {
	b := New(DefaultCaps(), nil)

	assert.True(t, b.Allocate(CategoryFireworks, 30))
	assert.Equal(t, 150, b.Available(CategoryFireworks))

	assert.False(t, b.Allocate(CategoryFireworks, 200))
	assert.Equal(t, 150, b.Available(CategoryFireworks))
}

func TestAllocateIsAllOrNothing(t *testing.T) {
	b := New(map[string]int{"a": 10}, nil)
	require.True(t, b.Allocate("a", 7))
	assert.False(t, b.Allocate("a", 4))
	assert.Equal(t, 3, b.Available("a"))
	assert.True(t, b.Allocate("a", 3))
	assert.Equal(t, 0, b.Available("a"))
	assert.True(t, b.Allocate("a", 0))
	assert.False(t, b.Allocate("a", -1))
}

func TestCategoriesAreIsolated(t *testing.T) {
	b := New(map[string]int{"a": 5, "b": 5}, nil)
	require.True(t, b.Allocate("a", 5))
	assert.False(t, b.Allocate("a", 1))
	assert.True(t, b.Allocate("b", 5))
}

func TestUnknownCategory(t *testing.T) {
	b := New(map[string]int{"a": 5}, nil)
	assert.False(t, b.Allocate("missing", 1))
	assert.Equal(t, 0, b.Available("missing"))
	b.Deallocate("missing", 3)
}

func TestDeallocateClampsAtZero(t *testing.T) {
	b := New(map[string]int{"a": 10}, nil)
	require.True(t, b.Allocate("a", 2))
	b.Deallocate("a", 5)
	assert.Equal(t, 10, b.Available("a"))
	b.Deallocate("a", -3)
	assert.Equal(t, 10, b.Available("a"))
}

func TestReleaseAndSnapshot(t *testing.T) {
	b := New(map[string]int{"b": 4, "a": 2}, nil)
	require.True(t, b.Allocate("b", 3))
	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Category)
	assert.Equal(t, Usage{Category: "b", Allocated: 3, Cap: 4}, snap[1])
	assert.Equal(t, 1, snap[1].Available())

	b.Release("b")
	assert.Equal(t, 4, b.Available("b"))
}

func TestAllocateDeallocateRoundTrip(t *testing.T) {
	b := New(DefaultCaps(), nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		before := b.Available(CategoryParticles)
		n := rng.Intn(80)
		if b.Allocate(CategoryParticles, n) {
			assert.Equal(t, before-n, b.Available(CategoryParticles))
			b.Deallocate(CategoryParticles, n)
		}
		assert.Equal(t, before, b.Available(CategoryParticles))
	}
}

func TestAllocatedNeverExceedsCapUnderConcurrency(t *testing.T) {
	b := New(map[string]int{"a": 50}, nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < 500; i++ {
				n := rng.Intn(10)
				if b.Allocate("a", n) {
					avail := b.Available("a")
					assert.GreaterOrEqual(t, avail, 0)
					b.Deallocate("a", n)
				}
			}
		}(int64(w))
	}
	wg.Wait()
	assert.Equal(t, 50, b.Available("a"))
}

func TestEmitterMatchesEveryGrant(t *testing.T) {
	b := New(map[string]int{CategoryFloatingText: 10}, nil)
	e := NewEmitter(b, CategoryFloatingText)

	require.True(t, e.Spawn(6))
	assert.False(t, e.Spawn(5))
	assert.Equal(t, 4, e.SpawnUpTo(9))
	assert.Equal(t, 0, e.SpawnUpTo(1))
	assert.Equal(t, 10, e.Live())

	e.Retire(3)
	assert.Equal(t, 3, b.Available(CategoryFloatingText))

	e.Retire(100)
	assert.Equal(t, 0, e.Live())
	assert.Equal(t, 10, b.Available(CategoryFloatingText))

	require.True(t, e.Spawn(8))
	e.Clear()
	assert.Equal(t, 10, b.Available(CategoryFloatingText))
	assert.Equal(t, CategoryFloatingText, e.Category())
}

func TestEmitterWithoutBudget(t *testing.T) {
	e := NewEmitter(nil, CategoryParticles)
	assert.True(t, e.Spawn(1000))
	assert.Equal(t, 5, e.SpawnUpTo(5))
	e.Clear()
	assert.Equal(t, 0, e.Live())
	assert.True(t, e.Spawn(0))
	assert.False(t, e.Spawn(-1))
}
