package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed         = errors.New("event queue closed")
	ErrHandlerTimeout = errors.New("event handler timed out")
	ErrHandlerPanic   = errors.New("event handler panicked")
)
