// Package delivery is the durable, retrying delivery path for score
// submissions.
package delivery

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
	"github.com/zeusync/governor/pkg/backoff"
)

// Outcome is the result of one ProcessOne step.
type Outcome uint8

const (
	OutcomeDelivered Outcome = iota
	OutcomeBackoff
	OutcomeFailed
	OutcomeUnauthorized
	OutcomeDropped
	OutcomeExpired
	OutcomeMissing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeBackoff:
		return "backoff"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeDropped:
		return "dropped"
	case OutcomeExpired:
		return "expired"
	default:
		return "missing"
	}
}

// DrainResult tallies one ProcessAll pass.
type DrainResult struct {
	Delivered    int
	Deferred     int
	Failed       int
	Unauthorized int
	Dropped      int
	Remaining    int
}

// Queue is the durable FIFO of pending score submissions. It is the only
// writer of Records; every change goes through Store.Update.
type Queue struct {
	cfg       Config
	table     backoff.Table
	store     Store
	deliverer Deliverer
	clock     clock.Clock
	logger    log.Log
	sink      telemetry.Sink
	pause     func(ctx context.Context, d time.Duration) error

	drains   singleflight.Group
	drainGen atomic.Uint64

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Queue)

func WithClock(c clock.Clock) Option { return func(q *Queue) { q.clock = c } }

func WithLogger(l log.Log) Option { return func(q *Queue) { q.logger = l } }

func WithTelemetry(s telemetry.Sink) Option { return func(q *Queue) { q.sink = s } }

// WithPause replaces the inter-record sleep, mainly for tests.
func WithPause(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(q *Queue) { q.pause = fn }
}

func NewQueue(cfg Config, store Store, deliverer Deliverer, opts ...Option) *Queue {
	cfg = cfg.withDefaults()
	q := &Queue{
		cfg:       cfg,
		table:     cfg.backoff(),
		store:     store,
		deliverer: deliverer,
		clock:     clock.System(),
		logger:    log.Nop(),
		sink:      telemetry.Nop(),
		pause:     sleepCtx,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With(log.String("component", "delivery_queue"))
	q.sink = telemetry.OrNop(q.sink)
	return q
}

// Enqueue persists a new record and returns its id. Depth beyond
// FullThreshold is accepted.
func (q *Queue) Enqueue(ctx context.Context, payload ScorePayload) (string, error) {
	return q.enqueue(ctx, uuid.NewString(), payload)
}

func (q *Queue) enqueue(ctx context.Context, id string, payload ScorePayload) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", err
	}
	rec := Record{
		ID:        id,
		Payload:   payload,
		Timestamp: q.clock.Now(),
	}
	var depth int
	err := q.store.Update(ctx, func(records []Record) ([]Record, error) {
		records = append(records, rec)
		depth = len(records)
		return records, nil
	})
	if err != nil {
		return "", err
	}
	q.logger.Info("score queued",
		log.String("id", id),
		log.String("game", payload.GameID),
		log.Int("depth", depth))
	if depth >= q.cfg.FullThreshold {
		q.logger.Warn("delivery queue is full", log.Int("depth", depth))
	}
	return id, nil
}

// ListActive returns pending records oldest first. Records older than
// MaxAge are removed as part of the read.
func (q *Queue) ListActive(ctx context.Context) ([]Record, error) {
	now := q.clock.Now()
	var active []Record
	expired := 0
	err := q.store.Update(ctx, func(records []Record) ([]Record, error) {
		active = make([]Record, 0, len(records))
		for _, r := range records {
			if q.isExpired(r, now) {
				expired++
				continue
			}
			active = append(active, r)
		}
		if expired == 0 {
			return nil, errUnchanged
		}
		return active, nil
	})
	if err != nil {
		return nil, err
	}
	if expired > 0 {
		q.logger.Info("expired records pruned", log.Int("count", expired))
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Timestamp.Before(active[j].Timestamp)
	})
	return active, nil
}

// Get returns one active record.
func (q *Queue) Get(ctx context.Context, id string) (Record, error) {
	records, err := q.ListActive(ctx)
	if err != nil {
		return Record{}, err
	}
	if i := indexOf(records, id); i >= 0 {
		return records[i], nil
	}
	return Record{}, ErrNotFound
}

func (q *Queue) Size(ctx context.Context) (int, error) {
	records, err := q.ListActive(ctx)
	return len(records), err
}

// IsQueueFull is advisory only; Enqueue keeps accepting records.
func (q *Queue) IsQueueFull(ctx context.Context) (bool, error) {
	n, err := q.Size(ctx)
	return n >= q.cfg.FullThreshold, err
}

// Dequeue removes a record and reports whether it was present.
func (q *Queue) Dequeue(ctx context.Context, id string) (bool, error) {
	removed := false
	err := q.store.Update(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, errUnchanged
		}
		removed = true
		return without(records, i), nil
	})
	return removed, err
}

// Clear drops every pending record.
func (q *Queue) Clear(ctx context.Context) error {
	return q.store.Update(ctx, func([]Record) ([]Record, error) {
		return []Record{}, nil
	})
}

// ProcessOne runs one gated delivery attempt for id and reports whether
// the record was delivered.
func (q *Queue) ProcessOne(ctx context.Context, id string) (bool, error) {
	outcome, err := q.process(ctx, id)
	return outcome == OutcomeDelivered, err
}

// Process is ProcessOne with the detailed outcome.
func (q *Queue) Process(ctx context.Context, id string) (Outcome, error) {
	return q.process(ctx, id)
}

func (q *Queue) process(ctx context.Context, id string) (Outcome, error) {
	now := q.clock.Now()
	outcome := OutcomeMissing
	var rec Record

	err := q.store.Update(ctx, func(records []Record) ([]Record, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, errUnchanged
		}
		r := &records[i]
		rec = *r

		if q.isExpired(*r, now) {
			outcome = OutcomeExpired
			return without(records, i), nil
		}
		if r.AttemptCount > 0 {
			delay := q.table.At(r.AttemptCount - 1)
			if now.Sub(r.LastAttemptTime) < delay {
				outcome = OutcomeBackoff
				return nil, errUnchanged
			}
		}
		if r.AttemptCount >= q.cfg.MaxAttempts {
			outcome = OutcomeDropped
			return without(records, i), nil
		}

		r.AttemptCount++
		r.LastAttemptTime = now
		rec = *r
		outcome = OutcomeFailed
		return records, nil
	})
	if err != nil {
		return OutcomeMissing, err
	}

	switch outcome {
	case OutcomeMissing:
		return outcome, ErrNotFound
	case OutcomeBackoff, OutcomeExpired:
		return outcome, nil
	case OutcomeDropped:
		q.logger.Warn("score dropped after max attempts",
			log.String("id", rec.ID),
			log.Int("attempts", rec.AttemptCount))
		q.sink.LogEvent(telemetry.EventDeliveryDropped, map[string]float64{
			"attempts":  float64(rec.AttemptCount),
			"age_hours": rec.Age(now).Hours(),
		}, time.Time{})
		return outcome, nil
	}

	attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.DeliveryTimeout)
	derr := q.deliverer.Deliver(attemptCtx, rec.ID, rec.Payload)
	if derr != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && !errors.Is(derr, ErrTimeout) {
		derr = errors.Join(ErrTimeout, derr)
	}
	cancel()

	switch {
	case derr == nil:
		if _, err := q.Dequeue(ctx, rec.ID); err != nil {
			return OutcomeDelivered, err
		}
		q.logger.Info("queued score delivered",
			log.String("id", rec.ID),
			log.Int("attempts", rec.AttemptCount))
		return OutcomeDelivered, nil

	case errors.Is(derr, ErrUnauthorized):
		// Auth failures wait for renewal without consuming an attempt.
		err := q.store.Update(ctx, func(records []Record) ([]Record, error) {
			i := indexOf(records, rec.ID)
			if i < 0 || records[i].AttemptCount != rec.AttemptCount {
				return nil, errUnchanged
			}
			records[i].AttemptCount--
			return records, nil
		})
		q.logger.Info("delivery waiting for session renewal", log.String("id", rec.ID))
		return OutcomeUnauthorized, err

	default:
		q.logger.Warn("delivery attempt failed",
			log.String("id", rec.ID),
			log.Int("attempts", rec.AttemptCount),
			log.Duration("next_backoff", q.table.At(rec.AttemptCount-1)),
			log.Error(derr))
		return OutcomeFailed, nil
	}
}

// ProcessAll drains active records oldest first, pausing between attempts.
// Concurrent calls share one drain. A caller that joins a drain which
// listed the queue before the call arrived waits for it and then runs a
// fresh one, so records enqueued before the call are always covered. A
// shared drain cut short by another caller's context is retried.
func (q *Queue) ProcessAll(ctx context.Context) (DrainResult, error) {
	gen := q.drainGen.Add(1)
	for {
		v, err, _ := q.drains.Do("drain", func() (any, error) {
			covers := q.drainGen.Load()
			res, err := q.processAll(ctx)
			return drainPass{res: res, covers: covers}, err
		})
		p, _ := v.(drainPass)
		switch {
		case err == nil && p.covers >= gen:
			return p.res, nil
		case ctx.Err() != nil:
			if err == nil {
				err = ctx.Err()
			}
			return p.res, err
		case p.covers < gen:
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			continue
		}
		return p.res, err
	}
}

// drainPass is one shared drain and the newest ProcessAll call it covers.
type drainPass struct {
	res    DrainResult
	covers uint64
}

func (q *Queue) processAll(ctx context.Context) (DrainResult, error) {
	var res DrainResult
	records, err := q.ListActive(ctx)
	if err != nil {
		return res, err
	}

	attempted := false
	for _, r := range records {
		if attempted {
			if err := q.pause(ctx, q.cfg.InterRecordPause); err != nil {
				return res, err
			}
			attempted = false
		}

		outcome, err := q.process(ctx, r.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return res, err
		}
		switch outcome {
		case OutcomeDelivered:
			res.Delivered++
			attempted = true
		case OutcomeBackoff:
			res.Deferred++
		case OutcomeFailed:
			res.Failed++
			attempted = true
		case OutcomeUnauthorized:
			res.Unauthorized++
			attempted = true
		case OutcomeDropped, OutcomeExpired:
			res.Dropped++
		}
	}

	res.Remaining, err = q.Size(ctx)
	if res.Delivered+res.Failed+res.Dropped+res.Unauthorized > 0 {
		q.logger.Info("drain finished",
			log.Int("delivered", res.Delivered),
			log.Int("failed", res.Failed),
			log.Int("dropped", res.Dropped),
			log.Int("remaining", res.Remaining))
	}
	return res, err
}

// Start runs ProcessAll every DrainInterval until Stop or ctx ends.
// Calling Start on a running queue is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.loopMu.Lock()
	defer q.loopMu.Unlock()
	if q.cancel != nil {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)
	q.done = make(chan struct{})
	go q.loop(ctx, q.done)
}

// Stop halts the drain timer and waits for an in-flight drain. Safe to call
// repeatedly.
func (q *Queue) Stop() {
	q.loopMu.Lock()
	cancel, done := q.cancel, q.done
	q.cancel, q.done = nil, nil
	q.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (q *Queue) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(q.cfg.DrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.ProcessAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				q.logger.Error("scheduled drain failed", log.Error(err))
			}
		}
	}
}

func (q *Queue) isExpired(r Record, now time.Time) bool {
	return r.Age(now) > q.cfg.MaxAge
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
