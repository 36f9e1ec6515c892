package loop

import "errors"

var (
	ErrStopped        = errors.New("loop stopped")
	ErrAlreadyRunning = errors.New("loop already running")
	ErrForeignTask    = errors.New("task belongs to another loop")
	ErrTaskPanicked   = errors.New("task panicked")
)
