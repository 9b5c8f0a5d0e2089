package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualAdvanceAndSet(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewManual(start)
	assert.Equal(t, start, m.Now())

	got := m.Advance(1500 * time.Millisecond)
	assert.Equal(t, start.Add(1500*time.Millisecond), got)
	assert.Equal(t, got, m.Now())

	later := start.Add(time.Hour)
	m.Set(later)
	assert.Equal(t, later, m.Now())
}

func TestSystemClockMoves(t *testing.T) {
	before := time.Now()
	assert.False(t, System().Now().Before(before))
}
