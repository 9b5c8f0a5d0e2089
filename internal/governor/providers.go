package governor

import (
	"context"
	"fmt"

	"github.com/google/wire"

	"github.com/zeusync/governor/internal/core/budget"
	"github.com/zeusync/governor/internal/core/clock"
	"github.com/zeusync/governor/internal/core/delivery"
	"github.com/zeusync/governor/internal/core/events/bus"
	"github.com/zeusync/governor/internal/core/frame"
	"github.com/zeusync/governor/internal/core/observability/log"
	"github.com/zeusync/governor/internal/core/observability/telemetry"
	"github.com/zeusync/governor/internal/core/render"
	"github.com/zeusync/governor/internal/core/session"
	"github.com/zeusync/governor/internal/core/transport"
)

// ProviderSet builds a Runtime from a Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideClock,
	ProvideBus,
	ProvideEmitter,
	ProvideForwarder,
	NewSessionState,
	ProvideMonitor,
	ProvideBudget,
	ProvideGuard,
	ProvideClient,
	ProvideStore,
	ProvideDeliverer,
	ProvideQueue,
	ProvideSubmitter,
	ProvideRenewer,
	ProvideWarner,
	wire.Struct(new(Components), "*"),
	NewRuntime,
)

func ProvideLogger(cfg Config) (log.Log, error) {
	return log.NewWithOptions(log.Options{
		Level:    log.ParseLevel(cfg.LogLevel),
		Encoding: cfg.LogFormat,
	})
}

func ProvideClock() clock.Clock {
	return clock.System()
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

func ProvideEmitter(cfg Config, b bus.EventBus, logger log.Log, clk clock.Clock) (*telemetry.Emitter, error) {
	if cfg.Telemetry.LogEvents {
		if _, err := b.Subscribe(bus.Wildcard, telemetry.LogSubscriber(logger)); err != nil {
			return nil, err
		}
	}
	return telemetry.NewEmitter(b, logger, clk, telemetry.EmitterConfig{
		BufferSize: cfg.Telemetry.BufferSize,
		ClientID:   cfg.Telemetry.ClientID,
		Salt:       cfg.Telemetry.Salt,
	}), nil
}

// ProvideForwarder subscribes a websocket collector when one is configured.
func ProvideForwarder(cfg Config, b bus.EventBus, logger log.Log) (*telemetry.WebSocketForwarder, error) {
	if cfg.Telemetry.CollectorURL == "" {
		return nil, nil
	}
	f := telemetry.NewWebSocketForwarder(cfg.Telemetry.CollectorURL, nil, logger)
	if _, err := b.Subscribe(bus.Wildcard, f.Handle); err != nil {
		return nil, err
	}
	return f, nil
}

func ProvideMonitor(cfg Config, clk clock.Clock, logger log.Log, em *telemetry.Emitter, state *SessionState) *frame.Monitor {
	return frame.NewMonitor(cfg.Frame,
		frame.WithClock(clk),
		frame.WithLogger(logger),
		frame.WithTelemetry(em),
		frame.WithSessionStart(state.Started),
	)
}

// ProvideBudget returns nil when the budget is disabled.
func ProvideBudget(cfg Config, logger log.Log) *budget.Budget {
	if !cfg.Budget.Enabled {
		return nil
	}
	return budget.New(cfg.Budget.Caps, logger)
}

func ProvideGuard(cfg Config, clk clock.Clock, logger log.Log, em *telemetry.Emitter) *render.Guard {
	return render.NewGuard(cfg.Render,
		render.WithClock(clk),
		render.WithLogger(logger),
		render.WithTelemetry(em),
	)
}

func ProvideClient(cfg Config) (*transport.Client, func(), error) {
	client, err := transport.New(cfg.Transport)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideStore opens the bbolt file, or an in-memory store when no path is
// configured. The cleanup releases the file lock if a later provider fails.
func ProvideStore(cfg Config) (delivery.Store, func(), error) {
	var store delivery.Store
	if cfg.Delivery.StorePath == "" {
		store = delivery.NewMemoryStore()
	} else {
		bs, err := delivery.OpenBoltStore(cfg.Delivery.StorePath)
		if err != nil {
			return nil, nil, err
		}
		store = bs
	}
	return store, func() { _ = store.Close() }, nil
}

func ProvideDeliverer(cfg Config, client *transport.Client, logger log.Log) delivery.Deliverer {
	if cfg.Delivery.Endpoint == "" {
		logger.Warn("no score endpoint configured, scores stay queued")
		return delivery.DelivererFunc(func(context.Context, string, delivery.ScorePayload) error {
			return fmt.Errorf("%w: no endpoint configured", delivery.ErrTransient)
		})
	}
	return delivery.NewHTTPDeliverer(client.HTTP, cfg.Delivery.Endpoint)
}

func ProvideQueue(cfg Config, store delivery.Store, d delivery.Deliverer, clk clock.Clock, logger log.Log, em *telemetry.Emitter) *delivery.Queue {
	return delivery.NewQueue(cfg.Delivery.Queue, store, d,
		delivery.WithClock(clk),
		delivery.WithLogger(logger),
		delivery.WithTelemetry(em),
	)
}

func ProvideSubmitter(q *delivery.Queue, d delivery.Deliverer, logger log.Log, em *telemetry.Emitter) *delivery.Submitter {
	return delivery.NewSubmitter(q, d, logger, em)
}

// ProvideRenewer returns nil when renewal is disabled.
func ProvideRenewer(cfg Config, client *transport.Client) session.Renewer {
	if cfg.Session.RenewEndpoint == "" {
		return nil
	}
	return session.NewHTTPRenewer(client.HTTP, cfg.Session.RenewEndpoint)
}

func ProvideWarner(logger log.Log) session.Warner {
	return session.LogWarner{Logger: logger}
}
