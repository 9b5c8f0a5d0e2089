package session

import "errors"

var (
	// ErrRenewalRejected means the server no longer accepts the session.
	ErrRenewalRejected = errors.New("session: renewal rejected")
	ErrRenewalFailed   = errors.New("session: renewal failed")
)
