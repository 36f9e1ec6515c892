package thread

import "errors"

var (
	// Construction errors
	ErrNilBehavior = errors.New("thread behavior is nil")
	ErrNilChannels = errors.New("thread channel context is nil")

	// Lifecycle errors
	ErrAlreadyStarted = errors.New("thread already started")
)
