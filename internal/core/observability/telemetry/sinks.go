package telemetry

import (
	"fmt"

	"github.com/zeusync/governor/internal/core/events/bus"
	"github.com/zeusync/governor/internal/core/observability/log"
)

// EventFrom unwraps the telemetry payload of a bus event.
func EventFrom(e bus.Event) (Event, bool) {
	ev, ok := e.Data().(Event)
	return ev, ok
}

// LogSubscriber writes every telemetry event to the logger.
func LogSubscriber(logger log.Log) bus.EventHandler {
	logger = logger.With(log.String("component", "telemetry_sink"))
	return func(e bus.Event) error {
		ev, ok := EventFrom(e)
		if !ok {
			return fmt.Errorf("telemetry: unexpected payload %T", e.Data())
		}
		fields := make([]log.Field, 0, len(ev.Metrics)+2)
		fields = append(fields, log.String("type", ev.Type))
		if ev.Client != "" {
			fields = append(fields, log.String("client", ev.Client))
		}
		for k, v := range ev.Metrics {
			fields = append(fields, log.Float64(k, v))
		}
		logger.Info("telemetry", fields...)
		return nil
	}
}
