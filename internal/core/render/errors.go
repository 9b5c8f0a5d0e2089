package render

import "errors"

var (
	// ErrPanic wraps a value recovered from a panicking draw call.
	ErrPanic = errors.New("render: draw panicked")
	// ErrFallback is returned by Frame while the guard is in fallback.
	ErrFallback = errors.New("render: in fallback")
)
