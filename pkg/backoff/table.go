// Package backoff builds fixed retry schedules on top of go-retry's
// exponential generator.
package backoff

import (
	"time"

	"github.com/sethvargo/go-retry"
)

// Table is an increasing sequence of wait durations indexed by attempt.
type Table []time.Duration

// Exponential returns steps durations starting at base and doubling each
// step: Exponential(time.Second, 5) is 1s, 2s, 4s, 8s, 16s.
func Exponential(base time.Duration, steps int) Table {
	if base <= 0 || steps <= 0 {
		return Table{}
	}
	b := retry.WithMaxRetries(uint64(steps), retry.NewExponential(base))
	out := make(Table, 0, steps)
	for {
		next, stop := b.Next()
		if stop {
			break
		}
		out = append(out, next)
	}
	return out
}

// At returns the delay for index i, clamped to the last entry.
func (t Table) At(i int) time.Duration {
	if len(t) == 0 {
		return 0
	}
	if i < 0 {
		i = 0
	}
	if i >= len(t) {
		i = len(t) - 1
	}
	return t[i]
}

func (t Table) Len() int { return len(t) }
