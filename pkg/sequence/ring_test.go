package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		_, evicted := r.Push(i)
		assert.False(t, evicted)
	}
	assert.True(t, r.IsFull())

	old, evicted := r.Push(4)
	assert.True(t, evicted)
	assert.Equal(t, 1, old)
	assert.Equal(t, []int{2, 3, 4}, r.Collect())

	v, ok := r.At(0)
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	_, ok = r.At(3)
	assert.False(t, ok)
}

func TestRingClear(t *testing.T) {
	r := NewRing[string](2)
	r.Push("a")
	r.Push("b")
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Collect())
	assert.Equal(t, 2, r.Cap())
}
