// Package telemetry carries anonymized runtime events to external sinks.
// LogEvent never blocks its caller and never panics.
package telemetry

import (
	"sync"
	"time"
)

// Event types emitted by the governance layer.
const (
	EventPerformanceDegraded = "performance_degraded"
	EventRenderFallback      = "render_fallback"
	EventRenderRecovered     = "render_recovered"
	EventDeliveryDropped     = "score_delivery_dropped"
	EventDeliveryQueued      = "score_delivery_queued"
	EventSessionRenewed      = "session_renewed"
)

// Sink is the fire-and-forget telemetry contract. A zero sessionStart means
// no session was active.
type Sink interface {
	LogEvent(eventType string, metrics map[string]float64, sessionStart time.Time)
}

// Event is the structured record handed to sinks.
type Event struct {
	Type         string             `json:"type"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	SessionStart *time.Time         `json:"sessionStart,omitempty"`
	At           time.Time          `json:"at"`
	Client       string             `json:"client,omitempty"`
}

type nopSink struct{}

func (nopSink) LogEvent(string, map[string]float64, time.Time) {}

// Nop returns a Sink that discards every event.
func Nop() Sink { return nopSink{} }

// OrNop substitutes Nop for a nil sink.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

// Recorder keeps events in memory; handy for inspection in tests and the CLI.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) LogEvent(eventType string, metrics map[string]float64, sessionStart time.Time) {
	ev := Event{Type: eventType, Metrics: copyMetrics(metrics), At: time.Now()}
	if !sessionStart.IsZero() {
		ev.SessionStart = &sessionStart
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns recorded events with the given type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func copyMetrics(m map[string]float64) map[string]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
