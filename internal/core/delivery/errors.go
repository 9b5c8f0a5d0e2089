package delivery

import "errors"

var (
	ErrInvalidPayload = errors.New("delivery: invalid payload")
	ErrNotFound       = errors.New("delivery: record not found")
	ErrStoreClosed    = errors.New("delivery: store closed")

	// ErrUnauthorized marks an authentication-invalid response.
	ErrUnauthorized = errors.New("delivery: session not authenticated")
	// ErrTransient marks any other failed attempt.
	ErrTransient = errors.New("delivery: transient failure")
	// ErrTimeout marks an attempt that exceeded the delivery timeout.
	ErrTimeout = errors.New("delivery: attempt timed out")

	// errUnchanged aborts a store update without writing.
	errUnchanged = errors.New("delivery: unchanged")
)
