package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
)

// SubmitResult reports where a score ended up.
type SubmitResult struct {
	ID        string
	Delivered bool
	Queued    bool
	// QueueFull mirrors the advisory indicator after queueing.
	QueueFull bool
	Err       error
}

// Submitter tries direct delivery first and hands failures to the queue.
// The same id is used for the direct attempt and the queued record so the
// endpoint can deduplicate through the idempotency header.
type Submitter struct {
	queue     *Queue
	deliverer Deliverer
	logger    log.Log
	sink      telemetry.Sink
}

func NewSubmitter(queue *Queue, deliverer Deliverer, logger log.Log, sink telemetry.Sink) *Submitter {
	if logger == nil {
		logger = log.Nop()
	}
	return &Submitter{
		queue:     queue,
		deliverer: deliverer,
		logger:    logger.With(log.String("component", "submitter")),
		sink:      telemetry.OrNop(sink),
	}
}

// SubmitOrQueue returns an error only when the score could neither be
// delivered nor persisted.
func (s *Submitter) SubmitOrQueue(ctx context.Context, payload ScorePayload) (SubmitResult, error) {
	if err := payload.Validate(); err != nil {
		return SubmitResult{}, err
	}
	id := uuid.NewString()

	attemptCtx, cancel := context.WithTimeout(ctx, s.queue.cfg.DeliveryTimeout)
	derr := s.deliverer.Deliver(attemptCtx, id, payload)
	cancel()
	if derr == nil {
		return SubmitResult{ID: id, Delivered: true}, nil
	}

	s.logger.Info("direct delivery failed, queueing",
		log.String("id", id),
		log.Bool("unauthorized", errors.Is(derr, ErrUnauthorized)),
		log.Error(derr))

	if _, err := s.queue.enqueue(ctx, id, payload); err != nil {
		s.logger.Error("score could not be queued", log.String("id", id), log.Error(err))
		return SubmitResult{ID: id, Err: derr}, errors.Join(derr, err)
	}
	s.sink.LogEvent(telemetry.EventDeliveryQueued, nil, time.Time{})

	full, err := s.queue.IsQueueFull(ctx)
	if err != nil {
		s.logger.Warn("queue depth unavailable", log.Error(err))
	}
	return SubmitResult{ID: id, Queued: true, QueueFull: full, Err: derr}, nil
}
