package governor

import "errors"

// Runtime-specific errors
var (
	ErrRuntimeClosed         = errors.New("runtime is closed")
	ErrRuntimeNotRunning     = errors.New("runtime is not running")
	ErrRuntimeAlreadyRunning = errors.New("runtime is already running")
	ErrNoSession             = errors.New("no authenticated session")
	ErrInvalidConfig         = errors.New("invalid runtime configuration")
)
