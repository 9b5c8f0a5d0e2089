package session

import "time"

type Config struct {
	// CheckInterval is the period of the repeating expiry check.
	CheckInterval time.Duration `yaml:"check_interval"`
	// RenewBefore triggers proactive renewal when less time remains.
	RenewBefore time.Duration `yaml:"renew_before"`
	// WarnBefore triggers the expiry warning when less time remains.
	WarnBefore time.Duration `yaml:"warn_before"`
	// WarnCooldown is the minimum gap between two warnings.
	WarnCooldown time.Duration `yaml:"warn_cooldown"`
	// RenewTimeout bounds one renewal call.
	RenewTimeout time.Duration `yaml:"renew_timeout"`
	// RenewCooldown is the minimum gap after a successful renewal before
	// the next one. Failed renewals are retried on the next check.
	RenewCooldown time.Duration `yaml:"renew_cooldown"`
}

func DefaultConfig() Config {
	return Config{
		CheckInterval: 30 * time.Second,
		RenewBefore:   24 * time.Hour,
		WarnBefore:    2 * time.Minute,
		WarnCooldown:  5 * time.Minute,
		RenewTimeout:  10 * time.Second,
		RenewCooldown: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.RenewBefore <= 0 {
		c.RenewBefore = d.RenewBefore
	}
	if c.WarnBefore <= 0 {
		c.WarnBefore = d.WarnBefore
	}
	if c.WarnCooldown <= 0 {
		c.WarnCooldown = d.WarnCooldown
	}
	if c.RenewTimeout <= 0 {
		c.RenewTimeout = d.RenewTimeout
	}
	if c.RenewCooldown <= 0 {
		c.RenewCooldown = d.RenewCooldown
	}
	return c
}
