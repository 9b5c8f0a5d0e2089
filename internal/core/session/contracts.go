package session

import (
	"context"
	"sync"
	"time"

	"github.com/zeusync/governor/internal/core/delivery"
	"github.com/zeusync/governor/internal/core/observability/log"
)

// Source exposes the current session expiry. ok is false when no session
// is present.
type Source interface {
	Expires() (expires time.Time, ok bool)
}

type SourceFunc func() (time.Time, bool)

func (f SourceFunc) Expires() (time.Time, bool) { return f() }

// StaticSource is a fixed expiry. Renewals cannot move it; use Expiry when
// the server reports the extended deadline.
type StaticSource struct {
	At time.Time
}

func (s StaticSource) Expires() (time.Time, bool) { return s.At, !s.At.IsZero() }

// Updater is a Source that accepts the expiry reported by a renewal.
type Updater interface {
	SetExpires(at time.Time)
}

// Expiry is a Source the guardian moves forward after each renewal.
type Expiry struct {
	mu sync.RWMutex
	at time.Time
}

var (
	_ Source  = (*Expiry)(nil)
	_ Updater = (*Expiry)(nil)
)

func NewExpiry(at time.Time) *Expiry {
	return &Expiry{at: at}
}

func (e *Expiry) Expires() (time.Time, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.at, !e.at.IsZero()
}

func (e *Expiry) SetExpires(at time.Time) {
	e.mu.Lock()
	e.at = at
	e.mu.Unlock()
}

// Renewer extends the session with one lightweight authenticated call. It
// returns the new expiry, or the zero time when the server does not say.
type Renewer interface {
	Renew(ctx context.Context) (time.Time, error)
}

type RenewerFunc func(ctx context.Context) (time.Time, error)

func (f RenewerFunc) Renew(ctx context.Context) (time.Time, error) { return f(ctx) }

// Warner tells the user the session is about to lapse.
type Warner interface {
	WarnExpiring(remaining time.Duration)
}

type WarnerFunc func(remaining time.Duration)

func (f WarnerFunc) WarnExpiring(remaining time.Duration) { f(remaining) }

// Drainer is run after a successful renewal to flush auth-gated records.
type Drainer interface {
	ProcessAll(ctx context.Context) (delivery.DrainResult, error)
}

// LogWarner writes the warning to the logger.
type LogWarner struct {
	Logger log.Log
}

func (w LogWarner) WarnExpiring(remaining time.Duration) {
	logger := w.Logger
	if logger == nil {
		logger = log.Nop()
	}
	logger.Warn("session is about to expire, pending scores are kept and will be sent after sign-in",
		log.Duration("remaining", remaining))
}
