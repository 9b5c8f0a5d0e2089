// Package render wraps the per-frame draw call with bounded retry and a
// permanent static fallback.
package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
	"github.com/zeusync/governor/pkg/backoff"
)

type State uint8

const (
	StateHealthy State = iota
	StateRetrying
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateRetrying:
		return "retrying"
	case StateFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// DrawFunc renders one frame. Returning an error reports a fault.
type DrawFunc func(ctx context.Context) error

// FallbackRenderer draws the static frame shown during sustained failure.
type FallbackRenderer interface {
	DrawFallback(ctx context.Context, message string) error
}

type FallbackFunc func(ctx context.Context, message string) error

func (f FallbackFunc) DrawFallback(ctx context.Context, message string) error {
	return f(ctx, message)
}

// CrashState is a copy of the guard bookkeeping.
type CrashState struct {
	CrashCount    int
	LastCrashTime time.Time
	IsInFallback  bool
	ErrorMessage  string
	RetryAt       time.Time
}

// Outcome describes what Frame did.
type Outcome uint8

const (
	OutcomeRendered Outcome = iota
	OutcomeFailed
	OutcomeSkipped
	OutcomeFallback
)

// FrameResult is returned by Frame.
type FrameResult struct {
	Outcome    Outcome
	Err        error
	RetryAfter time.Duration
}

// Guard is the crash-resilience state machine:
// Healthy -> Retrying(count) on fault, Fallback once count reaches
// MaxRetries. Fallback is left only through ForceReset.
type Guard struct {
	cfg      Config
	table    backoff.Table
	clock    clock.Clock
	logger   log.Log
	sink     telemetry.Sink
	fallback FallbackRenderer

	mu    sync.Mutex
	state CrashState
}

type Option func(*Guard)

func WithClock(c clock.Clock) Option { return func(g *Guard) { g.clock = c } }

func WithLogger(l log.Log) Option { return func(g *Guard) { g.logger = l } }

func WithTelemetry(s telemetry.Sink) Option { return func(g *Guard) { g.sink = s } }

func WithFallback(f FallbackRenderer) Option { return func(g *Guard) { g.fallback = f } }

func NewGuard(cfg Config, opts ...Option) *Guard {
	cfg = cfg.withDefaults()
	g := &Guard{
		cfg:    cfg,
		table:  cfg.backoff(),
		clock:  clock.System(),
		logger: log.Nop(),
		sink:   telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(log.String("component", "render_guard"))
	g.sink = telemetry.OrNop(g.sink)
	return g
}

// ReportCrash records a fault. It returns whether the caller should retry
// and after how long; retry is false once the guard enters fallback.
func (g *Guard) ReportCrash(err error) (retry bool, delay time.Duration) {
	now := g.clock.Now()

	g.mu.Lock()
	if g.state.IsInFallback {
		g.mu.Unlock()
		return false, 0
	}
	g.state.CrashCount++
	g.state.LastCrashTime = now
	if err != nil {
		g.state.ErrorMessage = err.Error()
	}
	count := g.state.CrashCount

	if count >= g.cfg.MaxRetries {
		g.state.IsInFallback = true
		g.state.RetryAt = time.Time{}
		msg := g.state.ErrorMessage
		g.mu.Unlock()

		g.logger.Error("render entered fallback",
			log.Int("crash_count", count),
			log.String("last_error", msg))
		g.sink.LogEvent(telemetry.EventRenderFallback, map[string]float64{
			"crash_count": float64(count),
		}, time.Time{})
		return false, 0
	}

	delay = g.table.At(count - 1)
	g.state.RetryAt = now.Add(delay)
	g.mu.Unlock()

	g.logger.Warn("render fault, retrying",
		log.Int("crash_count", count),
		log.Duration("backoff", delay),
		log.Error(err))
	return true, delay
}

// ReportSuccess clears the fault count when the previous fault is older
// than the quiet gap. A success right after a fault keeps the count.
func (g *Guard) ReportSuccess() {
	now := g.clock.Now()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state.IsInFallback || g.state.CrashCount == 0 {
		return
	}
	if now.Sub(g.state.LastCrashTime) <= g.cfg.QuietGap {
		return
	}
	g.state.CrashCount = 0
	g.state.ErrorMessage = ""
	g.state.RetryAt = time.Time{}
	g.logger.Debug("render recovered")
}

// ForceReset leaves fallback. A scheduled retry time is kept.
func (g *Guard) ForceReset() {
	g.mu.Lock()
	was := g.state.IsInFallback
	g.state.IsInFallback = false
	g.state.CrashCount = 0
	g.state.ErrorMessage = ""
	g.mu.Unlock()

	if was {
		g.logger.Info("render fallback reset")
		g.sink.LogEvent(telemetry.EventRenderRecovered, nil, time.Time{})
	}
}

func (g *Guard) IsInFallback() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.IsInFallback
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.state.IsInFallback:
		return StateFallback
	case g.state.CrashCount > 0:
		return StateRetrying
	default:
		return StateHealthy
	}
}

func (g *Guard) CrashState() CrashState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Frame runs draw under the guard. While in fallback it draws the static
// frame instead; while a retry backoff is pending it skips the frame.
// Panics inside draw are recovered and counted as faults.
func (g *Guard) Frame(ctx context.Context, draw DrawFunc) FrameResult {
	now := g.clock.Now()

	g.mu.Lock()
	inFallback := g.state.IsInFallback
	retryAt := g.state.RetryAt
	g.mu.Unlock()

	if inFallback {
		g.drawFallback(ctx)
		return FrameResult{Outcome: OutcomeFallback, Err: ErrFallback}
	}
	if now.Before(retryAt) {
		return FrameResult{Outcome: OutcomeSkipped, RetryAfter: retryAt.Sub(now)}
	}

	if err := safeDraw(ctx, draw); err != nil {
		retry, delay := g.ReportCrash(err)
		if !retry {
			g.drawFallback(ctx)
			return FrameResult{Outcome: OutcomeFallback, Err: err}
		}
		return FrameResult{Outcome: OutcomeFailed, Err: err, RetryAfter: delay}
	}
	g.ReportSuccess()
	return FrameResult{Outcome: OutcomeRendered}
}

func (g *Guard) drawFallback(ctx context.Context) {
	if g.fallback == nil {
		return
	}
	if err := safeDraw(ctx, func(ctx context.Context) error {
		return g.fallback.DrawFallback(ctx, g.cfg.FallbackMessage)
	}); err != nil {
		g.logger.Error("fallback frame failed", log.Error(err))
	}
}

func safeDraw(ctx context.Context, draw DrawFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return draw(ctx)
}
