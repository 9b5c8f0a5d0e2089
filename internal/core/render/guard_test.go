package render

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
)

var errCanvas = errors.New("canvas: context lost")

func newTestGuard(opts ...Option) (*Guard, *clock.Manual, *telemetry.Recorder) {
	clk := clock.NewManual(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	rec := telemetry.NewRecorder()
	opts = append([]Option{WithClock(clk), WithTelemetry(rec)}, opts...)
	return NewGuard(DefaultConfig(), opts...), clk, rec
}

func TestScenarioThreeCrashesEnterFallback(t *testing.T) {
	g, clk, rec := newTestGuard()

	retry, delay := g.ReportCrash(errCanvas)
	assert.True(t, retry)
	assert.Equal(t, time.Second, delay)
	assert.Equal(t, StateRetrying, g.State())

	clk.Advance(50 * time.Millisecond)
	retry, delay = g.ReportCrash(errCanvas)
	assert.True(t, retry)
	assert.Equal(t, 2*time.Second, delay)

	clk.Advance(50 * time.Millisecond)
	retry, _ = g.ReportCrash(errCanvas)
	assert.False(t, retry)
	assert.True(t, g.IsInFallback())
	assert.Equal(t, StateFallback, g.State())

	st := g.CrashState()
	assert.Equal(t, 3, st.CrashCount)
	assert.Equal(t, errCanvas.Error(), st.ErrorMessage)
	assert.Len(t, rec.OfType(telemetry.EventRenderFallback), 1)
}

func TestFallbackPersistsUntilForceReset(t *testing.T) {
	g, clk, rec := newTestGuard()
	for i := 0; i < 3; i++ {
		g.ReportCrash(errCanvas)
	}
	require.True(t, g.IsInFallback())

	clk.Advance(time.Minute)
	g.ReportSuccess()
	retry, _ := g.ReportCrash(errCanvas)
	assert.False(t, retry)
	assert.True(t, g.IsInFallback())
	assert.Equal(t, 3, g.CrashState().CrashCount)

	g.ForceReset()
	assert.False(t, g.IsInFallback())
	assert.Equal(t, StateHealthy, g.State())
	assert.Len(t, rec.OfType(telemetry.EventRenderRecovered), 1)
}

func TestSuccessAfterQuietGapClearsCount(t *testing.T) {
	g, clk, _ := newTestGuard()

	g.ReportCrash(errCanvas)
	clk.Advance(50 * time.Millisecond)
	g.ReportSuccess()
	assert.Equal(t, 1, g.CrashState().CrashCount)

	clk.Advance(100 * time.Millisecond)
	g.ReportSuccess()
	assert.Equal(t, 0, g.CrashState().CrashCount)
	assert.Equal(t, StateHealthy, g.State())
}

func TestFallbackImpliesMaxRetries(t *testing.T) {
	g, clk, _ := newTestGuard()
	for i := 0; i < 10; i++ {
		g.ReportCrash(errCanvas)
		clk.Advance(10 * time.Millisecond)
		st := g.CrashState()
		if st.IsInFallback {
			assert.GreaterOrEqual(t, st.CrashCount, 3)
		}
	}
}

func TestFrameBacksOffAndRecovers(t *testing.T) {
	g, clk, _ := newTestGuard()
	ctx := context.Background()
	fail := true
	calls := 0
	draw := func(context.Context) error {
		calls++
		if fail {
			return errCanvas
		}
		return nil
	}

	res := g.Frame(ctx, draw)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, time.Second, res.RetryAfter)
	assert.ErrorIs(t, res.Err, errCanvas)

	clk.Advance(400 * time.Millisecond)
	res = g.Frame(ctx, draw)
	assert.Equal(t, OutcomeSkipped, res.Outcome)
	assert.Equal(t, 600*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 1, calls)

	fail = false
	clk.Advance(600 * time.Millisecond)
	res = g.Frame(ctx, draw)
	assert.Equal(t, OutcomeRendered, res.Outcome)
	assert.Equal(t, StateHealthy, g.State())
}

func TestFrameRecoversPanicsAndDrawsFallback(t *testing.T) {
	var messages []string
	fb := FallbackFunc(func(_ context.Context, msg string) error {
		messages = append(messages, msg)
		return nil
	})
	g, clk, _ := newTestGuard(WithFallback(fb))
	ctx := context.Background()
	boom := func(context.Context) error { panic("nil canvas") }

	for i := 0; i < 2; i++ {
		res := g.Frame(ctx, boom)
		require.Equal(t, OutcomeFailed, res.Outcome)
		assert.ErrorIs(t, res.Err, ErrPanic)
		clk.Advance(res.RetryAfter)
	}

	res := g.Frame(ctx, boom)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	require.Len(t, messages, 1)
	assert.Equal(t, DefaultConfig().FallbackMessage, messages[0])

	res = g.Frame(ctx, func(context.Context) error { return nil })
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrFallback)
	assert.Len(t, messages, 2)
}

func TestForceResetKeepsScheduledRetry(t *testing.T) {
	g, clk, _ := newTestGuard()
	g.ReportCrash(errCanvas)
	retryAt := g.CrashState().RetryAt

	g.ForceReset()
	assert.Equal(t, retryAt, g.CrashState().RetryAt)

	res := g.Frame(context.Background(), func(context.Context) error { return nil })
	assert.Equal(t, OutcomeSkipped, res.Outcome)

	clk.Advance(time.Second)
	res = g.Frame(context.Background(), func(context.Context) error { return nil })
	assert.Equal(t, OutcomeRendered, res.Outcome)
}

func TestFallbackRendererFailureIsContained(t *testing.T) {
	fb := FallbackFunc(func(context.Context, string) error { panic("fallback broke too") })
	g, _, _ := newTestGuard(WithFallback(fb))
	for i := 0; i < 3; i++ {
		g.ReportCrash(errCanvas)
	}
	assert.NotPanics(t, func() {
		g.Frame(context.Background(), func(context.Context) error { return nil })
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "healthy", StateHealthy.String())
	assert.Equal(t, "fallback", StateFallback.String())
}
