package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
)

type fakeDeliverer struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeDeliverer) Deliver(_ context.Context, id string, _ ScorePayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	return f.err
}

func (f *fakeDeliverer) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeDeliverer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fixture struct {
	queue *Queue
	store Store
	clock *clock.Manual
	del   *fakeDeliverer
	rec   *telemetry.Recorder
}

func newFixture(t *testing.T, store Store) *fixture {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	clk := clock.NewManual(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	del := &fakeDeliverer{}
	rec := telemetry.NewRecorder()
	q := NewQueue(DefaultConfig(), store, del,
		WithClock(clk),
		WithTelemetry(rec),
		WithPause(func(context.Context, time.Duration) error { return nil }),
	)
	return &fixture{queue: q, store: store, clock: clk, del: del, rec: rec}
}

func score(game string, points int64) ScorePayload {
	return ScorePayload{GameID: game, Score: points}
}
