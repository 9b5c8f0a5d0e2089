package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/events/bus"
	"github.com/zeusync/governor/internal/core/observability/log"
)

const source = "governor"

// EmitterConfig tunes the async emitter.
type EmitterConfig struct {
	BufferSize int
	ClientID   string
	Salt       string
}

func DefaultEmitterConfig() EmitterConfig {
	return EmitterConfig{BufferSize: 256}
}

// Emitter is the Sink handed to every component. Events are queued on a
// bounded channel and published on the bus from a single worker; when the
// buffer is full the event is dropped and counted.
type Emitter struct {
	bus    bus.EventBus
	logger log.Log
	clock  clock.Clock
	client string

	events  chan Event
	dropped atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	done    chan struct{}
	cancel  context.CancelFunc
}

var _ Sink = (*Emitter)(nil)

func NewEmitter(b bus.EventBus, logger log.Log, clk clock.Clock, cfg EmitterConfig) *Emitter {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultEmitterConfig().BufferSize
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Emitter{
		bus:    b,
		logger: logger.With(log.String("component", "telemetry")),
		clock:  clk,
		client: NewAnonymizer(cfg.Salt).Token(cfg.ClientID),
		events: make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
}

// LogEvent enqueues without blocking.
func (e *Emitter) LogEvent(eventType string, metrics map[string]float64, sessionStart time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.dropped.Add(1)
		}
	}()

	ev := Event{
		Type:    eventType,
		Metrics: copyMetrics(metrics),
		At:      e.clock.Now(),
		Client:  e.client,
	}
	if !sessionStart.IsZero() {
		ev.SessionStart = &sessionStart
	}

	select {
	case e.events <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Start launches the publishing worker. Further calls, and calls after
// Stop, are no-ops.
func (e *Emitter) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	ctx, e.cancel = context.WithCancel(ctx)
	go e.run(ctx)
}

// Stop publishes what is already buffered and stops the worker. An emitter
// that was never started flushes its buffer in the caller's goroutine.
func (e *Emitter) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	started, cancel := e.started, e.cancel
	e.mu.Unlock()

	if !started {
		e.flush()
		close(e.done)
		return
	}
	cancel()
	<-e.done
}

func (e *Emitter) flush() {
	for {
		select {
		case ev := <-e.events:
			e.publish(ev)
		default:
			return
		}
	}
}

func (e *Emitter) run(ctx context.Context) {
	defer close(e.done)
	for {
		select {
		case ev := <-e.events:
			e.publish(ev)
		case <-ctx.Done():
			e.flush()
			return
		}
	}
}

func (e *Emitter) publish(ev Event) {
	if err := e.bus.Publish(bus.NewEvent(ev.Type, source, ev.At, ev)); err != nil {
		e.logger.Warn("telemetry sink failed", log.String("type", ev.Type), log.Error(err))
	}
}
