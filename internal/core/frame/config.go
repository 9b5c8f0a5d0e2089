package frame

import "time"

type Config struct {
	// WindowSize is the number of samples averaged.
	WindowSize int `yaml:"window_size"`
	// ReducedBelow and MinimalBelow are the average FPS thresholds.
	ReducedBelow float64 `yaml:"reduced_below"`
	MinimalBelow float64 `yaml:"minimal_below"`
	// StartupFPS is assumed as the average until the window fills.
	StartupFPS float64 `yaml:"startup_fps"`
	// Hysteresis is how long a candidate level must persist before commit.
	Hysteresis time.Duration `yaml:"hysteresis"`
}

func DefaultConfig() Config {
	return Config{
		WindowSize:   60,
		ReducedBelow: 50,
		MinimalBelow: 40,
		StartupFPS:   60,
		Hysteresis:   2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}
	if c.ReducedBelow <= 0 {
		c.ReducedBelow = d.ReducedBelow
	}
	if c.MinimalBelow <= 0 {
		c.MinimalBelow = d.MinimalBelow
	}
	if c.StartupFPS <= 0 {
		c.StartupFPS = d.StartupFPS
	}
	if c.Hysteresis <= 0 {
		c.Hysteresis = d.Hysteresis
	}
	return c
}

// classify maps an average FPS onto a candidate level.
func (c Config) classify(avg float64) Level {
	switch {
	case avg >= c.ReducedBelow:
		return LevelFull
	case avg >= c.MinimalBelow:
		return LevelReduced
	default:
		return LevelMinimal
	}
}
