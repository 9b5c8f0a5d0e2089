package governor

import (
	"fmt"
	"time"

	"github.com/zeusync/governor/internal/core/budget"
	"github.com/zeusync/governor/internal/core/delivery"
	"github.com/zeusync/governor/internal/core/frame"
	"github.com/zeusync/governor/internal/core/render"
	"github.com/zeusync/governor/internal/core/session"
	"github.com/zeusync/governor/internal/core/transport"
)

// Config holds runtime configuration
type Config struct {
	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Frame     frame.Config     `yaml:"frame"`
	Budget    BudgetConfig     `yaml:"budget"`
	Render    render.Config    `yaml:"render"`
	Delivery  DeliveryConfig   `yaml:"delivery"`
	Session   SessionConfig    `yaml:"session"`
	Transport transport.Config `yaml:"transport"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

// BudgetConfig leaves the budget unconfigured when Enabled is false; every
// allocation is then granted.
type BudgetConfig struct {
	Enabled bool           `yaml:"enabled"`
	Caps    map[string]int `yaml:"caps"`
}

type DeliveryConfig struct {
	// Endpoint receives score POSTs. Empty keeps every score queued.
	Endpoint string `yaml:"endpoint"`
	// StorePath is the bbolt file. Empty keeps the queue in memory.
	StorePath string          `yaml:"store_path"`
	Queue     delivery.Config `yaml:"queue"`
}

type SessionConfig struct {
	// RenewEndpoint is hit with a GET to extend the session. Empty disables
	// proactive renewal.
	RenewEndpoint string         `yaml:"renew_endpoint"`
	Guardian      session.Config `yaml:"guardian"`
}

type TelemetryConfig struct {
	BufferSize int    `yaml:"buffer_size"`
	ClientID   string `yaml:"client_id"`
	Salt       string `yaml:"salt"`
	// CollectorURL is an optional websocket collector.
	CollectorURL string `yaml:"collector_url"`
	// LogEvents mirrors every telemetry event into the logger.
	LogEvents bool `yaml:"log_events"`
}

// DefaultConfig returns default runtime configuration
func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "json",
		Frame:     frame.DefaultConfig(),
		Budget: BudgetConfig{
			Enabled: true,
			Caps:    budget.DefaultCaps(),
		},
		Render: render.DefaultConfig(),
		Delivery: DeliveryConfig{
			Queue: delivery.DefaultConfig(),
		},
		Session: SessionConfig{
			Guardian: session.DefaultConfig(),
		},
		Transport: transport.Config{
			Timeout: 15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			BufferSize: 256,
			LogEvents:  true,
		},
	}
}

// Validate rejects configurations the components cannot honour.
func (c Config) Validate() error {
	if c.Frame.MinimalBelow > c.Frame.ReducedBelow {
		return fmt.Errorf("%w: frame.minimal_below %.1f above frame.reduced_below %.1f",
			ErrInvalidConfig, c.Frame.MinimalBelow, c.Frame.ReducedBelow)
	}
	for name, limit := range c.Budget.Caps {
		if limit < 0 {
			return fmt.Errorf("%w: budget cap %q is negative", ErrInvalidConfig, name)
		}
	}
	if c.Telemetry.BufferSize < 0 {
		return fmt.Errorf("%w: telemetry.buffer_size is negative", ErrInvalidConfig)
	}
	return nil
}
