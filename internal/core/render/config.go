package render

import (
	"time"

	"github.com/zeusync/governor/pkg/backoff"
)

type Config struct {
	// MaxRetries is the number of consecutive faults before fallback.
	MaxRetries int `yaml:"max_retries"`
	// BaseBackoff is the first retry delay; later delays double.
	BaseBackoff time.Duration `yaml:"base_backoff"`
	// QuietGap is the minimum time since the last fault for a successful
	// frame to clear the fault count.
	QuietGap time.Duration `yaml:"quiet_gap"`
	// FallbackMessage is shown by the default fallback renderer.
	FallbackMessage string `yaml:"fallback_message"`
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseBackoff:     time.Second,
		QuietGap:        100 * time.Millisecond,
		FallbackMessage: "Rendering paused. Your progress is safe.",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.QuietGap <= 0 {
		c.QuietGap = d.QuietGap
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = d.FallbackMessage
	}
	return c
}

func (c Config) backoff() backoff.Table {
	return backoff.Exponential(c.BaseBackoff, c.MaxRetries)
}
