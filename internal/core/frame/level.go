package frame

import "fmt"

// Level is the degradation rung callers consult to cheapen or skip effects.
type Level uint8

const (
	LevelFull Level = iota
	LevelReduced
	LevelMinimal
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelReduced:
		return "reduced"
	case LevelMinimal:
		return "minimal"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// Scale is the detail multiplier for effect counts at this level.
func (l Level) Scale() float64 {
	switch l {
	case LevelFull:
		return 1
	case LevelReduced:
		return 0.5
	default:
		return 0.25
	}
}

// Scaled applies Scale to n, keeping at least one entity for n > 0.
func (l Level) Scaled(n int) int {
	if n <= 0 {
		return 0
	}
	s := int(float64(n) * l.Scale())
	if s < 1 {
		return 1
	}
	return s
}
