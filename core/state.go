package core

// State is the lifecycle position of an agent.
type State int32

const (
	// StateIdle is the state of a freshly constructed agent.
	StateIdle State = iota
	// StateProcessing is held while a message is being processed.
	StateProcessing
	// StateError follows a failed ProcessMessage.
	StateError
	// StateCompleted follows a successful ProcessMessage.
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateError:
		return "error"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
