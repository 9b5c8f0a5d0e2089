package delivery

import (
	"fmt"
	"time"
)

// ScorePayload is the body sent to the score endpoint.
type ScorePayload struct {
	GameID   string         `json:"gameId" yaml:"game_id"`
	Score    int64          `json:"score" yaml:"score"`
	Duration *int64         `json:"duration,omitempty" yaml:"duration,omitempty"`
	Moves    *int           `json:"moves,omitempty" yaml:"moves,omitempty"`
	Level    *int           `json:"level,omitempty" yaml:"level,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func (p ScorePayload) Validate() error {
	if p.GameID == "" {
		return fmt.Errorf("%w: missing gameId", ErrInvalidPayload)
	}
	return nil
}

// Record is one pending submission. Records are only mutated by the Queue.
type Record struct {
	ID              string       `json:"id"`
	Payload         ScorePayload `json:"payload"`
	Timestamp       time.Time    `json:"timestamp"`
	AttemptCount    int          `json:"attemptCount"`
	LastAttemptTime time.Time    `json:"lastAttemptTime,omitzero"`
}

func (r Record) Age(now time.Time) time.Duration {
	return now.Sub(r.Timestamp)
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func without(records []Record, i int) []Record {
	out := make([]Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	return append(out, records[i+1:]...)
}
