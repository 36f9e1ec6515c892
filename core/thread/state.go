package thread

// State is the lifecycle state of a Thread:
//
//	Created -> Running -> Stopping -> Stopped
//
// In completion mode a running thread moves to Stopped on its own once
// RunThread returned.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
