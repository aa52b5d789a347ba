package worker

import "errors"

// ErrAlreadyRunning is returned by Start when the driver loop is active.
var ErrAlreadyRunning = errors.New("driver already running")
