package session

import "errors"

var (
	// ErrNotStarted indicates an operation needs a started session.
	ErrNotStarted = errors.New("session not started")
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrClosed indicates the session was closed.
	ErrClosed = errors.New("session closed")
)
