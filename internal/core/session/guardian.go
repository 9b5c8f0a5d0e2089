// Package session keeps an authenticated session alive and warns before it
// lapses.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
)

// Status is the outcome of one Check.
type Status struct {
	Present   bool
	Remaining time.Duration
	Renewed   bool
	RenewErr  error
	Warned    bool
	// Drained is the number of queued scores delivered after renewal.
	Drained int
}

// Guardian polls the session expiry, renews it ahead of time and warns the
// user once it is close to lapsing.
type Guardian struct {
	cfg     Config
	source  Source
	renewer Renewer
	warner  Warner
	drainer Drainer
	clock   clock.Clock
	logger  log.Log
	sink    telemetry.Sink

	mu          sync.Mutex
	lastWarned  time.Time
	lastRenewed time.Time

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Guardian)

func WithClock(c clock.Clock) Option { return func(g *Guardian) { g.clock = c } }

func WithLogger(l log.Log) Option { return func(g *Guardian) { g.logger = l } }

func WithTelemetry(s telemetry.Sink) Option { return func(g *Guardian) { g.sink = s } }

func WithWarner(w Warner) Option { return func(g *Guardian) { g.warner = w } }

// WithDrainer sets the queue flushed after every successful renewal.
func WithDrainer(d Drainer) Option { return func(g *Guardian) { g.drainer = d } }

func NewGuardian(cfg Config, source Source, renewer Renewer, opts ...Option) *Guardian {
	g := &Guardian{
		cfg:     cfg.withDefaults(),
		source:  source,
		renewer: renewer,
		clock:   clock.System(),
		logger:  log.Nop(),
		sink:    telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(log.String("component", "session_guardian"))
	g.sink = telemetry.OrNop(g.sink)
	if g.warner == nil {
		g.warner = LogWarner{Logger: g.logger}
	}
	return g
}

// Check runs one expiry evaluation. Renewal failures are logged and left
// for the next check; after a success the next renewal waits for
// RenewCooldown.
func (g *Guardian) Check(ctx context.Context) Status {
	expires, ok := g.source.Expires()
	if !ok {
		return Status{}
	}
	now := g.clock.Now()
	st := Status{Present: true, Remaining: expires.Sub(now)}

	if st.Remaining < g.cfg.RenewBefore && g.renewer != nil && g.renewDue(now) {
		st.RenewErr = g.renew(ctx, st.Remaining)
		if st.RenewErr == nil {
			st.Renewed = true
			st.Drained = g.drain(ctx)
			if expires, ok = g.source.Expires(); ok {
				st.Remaining = expires.Sub(g.clock.Now())
			}
		}
	}

	if st.Remaining < g.cfg.WarnBefore {
		st.Warned = g.warnOnce(now, st.Remaining)
	}
	return st
}

func (g *Guardian) renewDue(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRenewed.IsZero() || now.Sub(g.lastRenewed) >= g.cfg.RenewCooldown
}

func (g *Guardian) renew(ctx context.Context, remaining time.Duration) error {
	renewCtx, cancel := context.WithTimeout(ctx, g.cfg.RenewTimeout)
	defer cancel()
	expires, err := g.renewer.Renew(renewCtx)
	if err != nil {
		g.logger.Warn("session renewal failed",
			log.Duration("remaining", remaining),
			log.Bool("rejected", errors.Is(err, ErrRenewalRejected)),
			log.Error(err))
		return err
	}

	g.mu.Lock()
	g.lastRenewed = g.clock.Now()
	g.mu.Unlock()

	updated := false
	if u, ok := g.source.(Updater); ok && !expires.IsZero() {
		u.SetExpires(expires)
		updated = true
	}
	g.logger.Info("session renewed",
		log.Duration("remaining_before", remaining),
		log.Bool("expiry_updated", updated))
	g.sink.LogEvent(telemetry.EventSessionRenewed, map[string]float64{
		"remaining_hours": remaining.Hours(),
	}, time.Time{})
	return nil
}

func (g *Guardian) drain(ctx context.Context) int {
	if g.drainer == nil {
		return 0
	}
	res, err := g.drainer.ProcessAll(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		g.logger.Error("post-renewal drain failed", log.Error(err))
	}
	return res.Delivered
}

func (g *Guardian) warnOnce(now time.Time, remaining time.Duration) bool {
	g.mu.Lock()
	if !g.lastWarned.IsZero() && now.Sub(g.lastWarned) < g.cfg.WarnCooldown {
		g.mu.Unlock()
		return false
	}
	g.lastWarned = now
	g.mu.Unlock()

	g.warner.WarnExpiring(max(remaining, 0))
	return true
}

// Start runs an immediate Check and then one every CheckInterval until
// Stop or ctx ends. Calling Start on a running guardian is a no-op.
func (g *Guardian) Start(ctx context.Context) {
	g.loopMu.Lock()
	defer g.loopMu.Unlock()
	if g.cancel != nil {
		return
	}
	ctx, g.cancel = context.WithCancel(ctx)
	g.done = make(chan struct{})
	go g.loop(ctx, g.done)
}

// Stop halts the poll and waits for an in-flight check. Safe to call
// repeatedly. The warning and renewal cooldowns are reset so a new session
// starts clean.
func (g *Guardian) Stop() {
	g.loopMu.Lock()
	cancel, done := g.cancel, g.done
	g.cancel, g.done = nil, nil
	g.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	g.mu.Lock()
	g.lastWarned = time.Time{}
	g.lastRenewed = time.Time{}
	g.mu.Unlock()
}

// Running reports whether the poll loop is active.
func (g *Guardian) Running() bool {
	g.loopMu.Lock()
	defer g.loopMu.Unlock()
	return g.cancel != nil
}

func (g *Guardian) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	g.Check(ctx)

	ticker := time.NewTicker(g.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Check(ctx)
		}
	}
}
