// Package frame classifies runtime health from per-frame FPS samples.
package frame

import (
	"math"
	"sync"
	"time"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
	"github.com/zeusync/governor/pkg/sequence"
)

// Monitor keeps a sliding window of FPS samples and exposes a
// hysteresis-smoothed degradation level. Level only changes after a
// candidate has been observed continuously for Config.Hysteresis.
type Monitor struct {
	cfg Config

	clock        clock.Clock
	logger       log.Log
	sink         telemetry.Sink
	sessionStart func() time.Time

	mu      sync.Mutex
	samples *sequence.Ring[float64]
	sum     float64
	level   Level

	pending      Level
	pendingSince time.Time
	hasPending   bool

	lastFrame time.Time
}

// Snapshot is a point-in-time view of the monitor.
type Snapshot struct {
	AverageFPS   float64
	Samples      int
	Level        Level
	Pending      Level
	HasPending   bool
	PendingSince time.Time
}

type Option func(*Monitor)

func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

func WithLogger(l log.Log) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithTelemetry(s telemetry.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithSessionStart supplies the session start attached to telemetry.
func WithSessionStart(fn func() time.Time) Option {
	return func(m *Monitor) { m.sessionStart = fn }
}

func NewMonitor(cfg Config, opts ...Option) *Monitor {
	cfg = cfg.withDefaults()
	m := &Monitor{
		cfg:     cfg,
		clock:   clock.System(),
		logger:  log.Nop(),
		sink:    telemetry.Nop(),
		samples: sequence.NewRing[float64](cfg.WindowSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(log.String("component", "frame_monitor"))
	m.sink = telemetry.OrNop(m.sink)
	return m
}

// Report ingests one FPS sample and returns the committed level.
// Non-finite and negative samples are ignored.
func (m *Monitor) Report(fps float64) Level {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps < 0 {
		return m.Level()
	}

	m.mu.Lock()
	now := m.clock.Now()
	if old, evicted := m.samples.Push(fps); evicted {
		m.sum -= old
	}
	m.sum += fps
	avg := m.averageLocked()

	prev, committed := m.evaluateLocked(m.cfg.classify(avg), now)
	level := m.level
	m.mu.Unlock()

	if committed {
		m.logger.Info("degradation level changed",
			log.String("from", prev.String()),
			log.String("to", level.String()),
			log.Float64("avg_fps", avg))
		if prev == LevelFull && level > LevelFull {
			m.sink.LogEvent(telemetry.EventPerformanceDegraded, map[string]float64{
				"level":   float64(level),
				"avg_fps": avg,
			}, m.session())
		}
	}
	return level
}

// ReportFrameTime derives FPS from the interval since the previous frame.
func (m *Monitor) ReportFrameTime(t time.Time) Level {
	m.mu.Lock()
	last := m.lastFrame
	m.lastFrame = t
	m.mu.Unlock()

	if last.IsZero() || !t.After(last) {
		return m.Level()
	}
	return m.Report(float64(time.Second) / float64(t.Sub(last)))
}

// Level returns the committed level, never the pending one.
func (m *Monitor) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// AverageFPS is the window mean, or the startup default until it fills.
func (m *Monitor) AverageFPS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averageLocked()
}

func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		AverageFPS:   m.averageLocked(),
		Samples:      m.samples.Len(),
		Level:        m.level,
		Pending:      m.pending,
		HasPending:   m.hasPending,
		PendingSince: m.pendingSince,
	}
}

// Reset drops all samples and returns to LevelFull.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples.Clear()
	m.sum = 0
	m.level = LevelFull
	m.hasPending = false
	m.pendingSince = time.Time{}
	m.lastFrame = time.Time{}
}

func (m *Monitor) averageLocked() float64 {
	if !m.samples.IsFull() {
		return m.cfg.StartupFPS
	}
	return m.sum / float64(m.samples.Len())
}

func (m *Monitor) evaluateLocked(candidate Level, now time.Time) (prev Level, committed bool) {
	if candidate == m.level {
		m.hasPending = false
		return m.level, false
	}
	if !m.hasPending || candidate != m.pending {
		m.pending = candidate
		m.pendingSince = now
		m.hasPending = true
		return m.level, false
	}
	if now.Sub(m.pendingSince) < m.cfg.Hysteresis {
		return m.level, false
	}
	prev = m.level
	m.level = candidate
	m.hasPending = false
	return prev, true
}

func (m *Monitor) session() time.Time {
	if m.sessionStart == nil {
		return time.Time{}
	}
	return m.sessionStart()
}
