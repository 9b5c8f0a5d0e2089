// Package governor wires the frame monitor, resource budget, render guard,
// delivery queue and session guardian into one runtime handed to the
// renderer.
package governor

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/governor/internal/core/budget"
	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/delivery"
	"github.com/zeusync/governor/internal/core/frame"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
	"github.com/zeusync/governor/internal/core/render"
	"github.com/zeusync/governor/internal/core/session"
	"github.com/zeusync/governor/internal/core/transport"
	"github.com/zeusync/governor/pkg/concurrent"
)

// Unlimited is what Available reports when no budget is configured.
const Unlimited = math.MaxInt

// Components are the collaborators a Runtime drives. Budget, Renewer,
// Warner, Forwarder and Client may be nil.
type Components struct {
	Monitor   *frame.Monitor
	Budget    *budget.Budget
	Guard     *render.Guard
	Queue     *delivery.Queue
	Submitter *delivery.Submitter
	Store     delivery.Store
	Renewer   session.Renewer
	Warner    session.Warner
	Emitter   *telemetry.Emitter
	Forwarder *telemetry.WebSocketForwarder
	Client    *transport.Client
	Session   *SessionState
}

// Runtime is one governed renderer instance. It owns every piece of state;
// two runtimes never share counters.
type Runtime struct {
	cfg    Config
	logger log.Log
	clock  clock.Clock
	c      Components

	// Runtime state
	running int32 // atomic bool
	closed  int32 // atomic bool

	lifeMu   sync.Mutex
	lifeCtx  context.Context
	cancel   context.CancelFunc
	guardian *session.Guardian
}

func NewRuntime(cfg Config, c Components, logger log.Log, clk clock.Clock) *Runtime {
	if logger == nil {
		logger = log.Nop()
	}
	if clk == nil {
		clk = clock.System()
	}
	if c.Session == nil {
		c.Session = NewSessionState()
	}
	return &Runtime{
		cfg:    cfg,
		logger: logger.With(log.String("component", "runtime")),
		clock:  clk,
		c:      c,
	}
}

// ReportFrame feeds one FPS sample and returns the degradation level.
func (r *Runtime) ReportFrame(fps float64) frame.Level {
	return r.c.Monitor.Report(fps)
}

func (r *Runtime) Level() frame.Level {
	return r.c.Monitor.Level()
}

// Allocate reserves n entities of category. Without a budget every request
// is granted.
func (r *Runtime) Allocate(category string, n int) bool {
	if r.c.Budget == nil {
		return true
	}
	return r.c.Budget.Allocate(category, n)
}

func (r *Runtime) Deallocate(category string, n int) {
	if r.c.Budget == nil {
		return
	}
	r.c.Budget.Deallocate(category, n)
}

// Available returns the remaining headroom, or Unlimited without a budget.
func (r *Runtime) Available(category string) int {
	if r.c.Budget == nil {
		return Unlimited
	}
	return r.c.Budget.Available(category)
}

// Emitter returns a spawn tracker for category bound to the budget.
func (r *Runtime) Emitter(category string) *budget.Emitter {
	if r.c.Budget == nil {
		return budget.NewEmitter(nil, category)
	}
	return budget.NewEmitter(r.c.Budget, category)
}

// BudgetUsage is empty when no budget is configured.
func (r *Runtime) BudgetUsage() []budget.Usage {
	if r.c.Budget == nil {
		return nil
	}
	return r.c.Budget.Snapshot()
}

// GuardFrame draws one frame under the render guard.
func (r *Runtime) GuardFrame(ctx context.Context, draw render.DrawFunc) render.FrameResult {
	return r.c.Guard.Frame(ctx, draw)
}

// ResetRender leaves fallback mode.
func (r *Runtime) ResetRender() {
	r.c.Guard.ForceReset()
}

// SubmitOrQueue delivers a score or queues it for later.
func (r *Runtime) SubmitOrQueue(ctx context.Context, payload delivery.ScorePayload) (delivery.SubmitResult, error) {
	if atomic.LoadInt32(&r.closed) == 1 {
		return delivery.SubmitResult{}, ErrRuntimeClosed
	}
	return r.c.Submitter.SubmitOrQueue(ctx, payload)
}

// Pending lists queued scores oldest first.
func (r *Runtime) Pending(ctx context.Context) ([]delivery.Record, error) {
	return r.c.Queue.ListActive(ctx)
}

// QueueFull is the advisory indicator shown to the user.
func (r *Runtime) QueueFull(ctx context.Context) bool {
	full, err := r.c.Queue.IsQueueFull(ctx)
	if err != nil {
		r.logger.Warn("queue depth unavailable", log.Error(err))
	}
	return full
}

// ClearPending drops every queued score.
func (r *Runtime) ClearPending(ctx context.Context) error {
	return r.c.Queue.Clear(ctx)
}

// Drain runs one delivery pass over the queue.
func (r *Runtime) Drain(ctx context.Context) (delivery.DrainResult, error) {
	if atomic.LoadInt32(&r.closed) == 1 {
		return delivery.DrainResult{}, ErrRuntimeClosed
	}
	return r.c.Queue.ProcessAll(ctx)
}

// Start launches the telemetry worker, the queue's drain timer and, when a
// session is present, the session guardian.
func (r *Runtime) Start(ctx context.Context) error {
	if atomic.LoadInt32(&r.closed) == 1 {
		return ErrRuntimeClosed
	}
	if !atomic.CompareAndSwapInt32(&r.running, 0, 1) {
		return ErrRuntimeAlreadyRunning
	}

	r.logger.Info("Starting runtime")

	r.lifeMu.Lock()
	r.lifeCtx, r.cancel = context.WithCancel(ctx)
	lifeCtx := r.lifeCtx
	guardian := r.guardian
	r.lifeMu.Unlock()

	if r.c.Emitter != nil {
		// The emitter outlives Stop/Start cycles and ends in Close.
		r.c.Emitter.Start(context.WithoutCancel(ctx))
	}
	r.c.Queue.Start(lifeCtx)
	if guardian != nil {
		guardian.Start(lifeCtx)
	}

	r.logger.Info("Runtime started", log.Bool("session", guardian != nil))
	return nil
}

// Stop halts every background loop and waits for them.
func (r *Runtime) Stop(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&r.running, 1, 0) {
		return ErrRuntimeNotRunning
	}

	r.logger.Info("Stopping runtime")

	r.lifeMu.Lock()
	cancel, guardian := r.cancel, r.guardian
	r.cancel, r.lifeCtx = nil, nil
	r.lifeMu.Unlock()

	stops := []func(){r.c.Queue.Stop}
	if guardian != nil {
		stops = append(stops, guardian.Stop)
	}
	concurrent.Each(stops...)
	if cancel != nil {
		cancel()
	}

	r.logger.Info("Runtime stopped")
	return nil
}

// Close stops the runtime if needed and releases the store, the HTTP client
// and the telemetry sinks. Calling Close twice is a no-op.
func (r *Runtime) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil // Already closed
	}

	r.logger.Info("Closing runtime")

	if atomic.LoadInt32(&r.running) == 1 {
		_ = r.Stop(context.Background())
	}
	r.OnLogout()

	if r.c.Emitter != nil {
		r.c.Emitter.Stop()
	}

	var closers []func() error
	if r.c.Store != nil {
		closers = append(closers, r.c.Store.Close)
	}
	if r.c.Client != nil {
		closers = append(closers, r.c.Client.Close)
	}
	if r.c.Forwarder != nil {
		closers = append(closers, r.c.Forwarder.Close)
	}
	err := concurrent.All(closers...)

	r.logger.Info("Runtime closed")
	return err
}

// OnLogin binds a session guardian to src. Any previous guardian is
// stopped first, so repeated logins never leak timers.
func (r *Runtime) OnLogin(src session.Source) error {
	if atomic.LoadInt32(&r.closed) == 1 {
		return ErrRuntimeClosed
	}
	if src == nil {
		return ErrNoSession
	}

	g := session.NewGuardian(r.cfg.Session.Guardian, src, r.c.Renewer, r.guardianOptions()...)

	r.lifeMu.Lock()
	prev := r.guardian
	r.guardian = g
	lifeCtx := r.lifeCtx
	r.lifeMu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	r.c.Session.begin(r.clock.Now(), src)
	if lifeCtx != nil {
		g.Start(lifeCtx)
	}

	r.logger.Info("Session bound", log.Bool("renewal", r.c.Renewer != nil))
	return nil
}

// OnLogout stops the session guardian. Queued scores stay persisted.
func (r *Runtime) OnLogout() {
	r.lifeMu.Lock()
	g := r.guardian
	r.guardian = nil
	r.lifeMu.Unlock()

	r.c.Session.end()
	if g == nil {
		return
	}
	g.Stop()
	r.logger.Info("Session released")
}

// CheckSession runs one guardian check immediately.
func (r *Runtime) CheckSession(ctx context.Context) (session.Status, error) {
	r.lifeMu.Lock()
	g := r.guardian
	r.lifeMu.Unlock()
	if g == nil {
		return session.Status{}, ErrNoSession
	}
	return g.Check(ctx), nil
}

func (r *Runtime) guardianOptions() []session.Option {
	opts := []session.Option{
		session.WithClock(r.clock),
		session.WithLogger(r.logger),
		session.WithDrainer(r.c.Queue),
	}
	if r.c.Emitter != nil {
		opts = append(opts, session.WithTelemetry(r.c.Emitter))
	}
	if r.c.Warner != nil {
		opts = append(opts, session.WithWarner(r.c.Warner))
	}
	return opts
}

// Running reports whether Start succeeded and Stop has not been called.
func (r *Runtime) Running() bool {
	return atomic.LoadInt32(&r.running) == 1
}

// SessionState tracks the authenticated session shared by the components.
type SessionState struct {
	mu      sync.RWMutex
	started time.Time
	source  session.Source
}

func NewSessionState() *SessionState {
	return &SessionState{}
}

// Started is the login time, zero without a session.
func (s *SessionState) Started() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Expires reads the bound source.
func (s *SessionState) Expires() (time.Time, bool) {
	s.mu.RLock()
	src := s.source
	s.mu.RUnlock()
	if src == nil {
		return time.Time{}, false
	}
	return src.Expires()
}

func (s *SessionState) begin(at time.Time, src session.Source) {
	s.mu.Lock()
	s.started, s.source = at, src
	s.mu.Unlock()
}

func (s *SessionState) end() {
	s.mu.Lock()
	s.started, s.source = time.Time{}, nil
	s.mu.Unlock()
}
