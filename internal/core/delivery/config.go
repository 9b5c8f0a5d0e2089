package delivery

import (
	"time"

	"github.com/zeusync/governor/pkg/backoff"
)

type Config struct {
	// MaxAttempts is the attempt count at which a record is dropped.
	MaxAttempts int `yaml:"max_attempts"`
	// BaseBackoff is the first per-record retry delay; later ones double.
	BaseBackoff time.Duration `yaml:"base_backoff"`
	// MaxAge drops records lazily on read.
	MaxAge time.Duration `yaml:"max_age"`
	// FullThreshold is the advisory depth reported by IsQueueFull.
	FullThreshold int `yaml:"full_threshold"`
	// InterRecordPause spaces attempts during a drain.
	InterRecordPause time.Duration `yaml:"inter_record_pause"`
	// DrainInterval is the period of the queue's own drain timer.
	DrainInterval time.Duration `yaml:"drain_interval"`
	// DeliveryTimeout bounds one attempt.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:      5,
		BaseBackoff:      time.Second,
		MaxAge:           30 * 24 * time.Hour,
		FullThreshold:    5,
		InterRecordPause: 100 * time.Millisecond,
		DrainInterval:    15 * time.Second,
		DeliveryTimeout:  10 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = d.BaseBackoff
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	if c.FullThreshold <= 0 {
		c.FullThreshold = d.FullThreshold
	}
	if c.InterRecordPause < 0 {
		c.InterRecordPause = 0
	}
	if c.DrainInterval <= 0 {
		c.DrainInterval = d.DrainInterval
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = d.DeliveryTimeout
	}
	return c
}

func (c Config) backoff() backoff.Table {
	return backoff.Exponential(c.BaseBackoff, c.MaxAttempts)
}
