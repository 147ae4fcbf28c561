package session

// State identifies where a fill session is in its lifecycle.
type State int

const (
	StateInitializing State = iota
	StateCreating
	StateLoading
	StateActive
	StateSaving
	StateSubmitting
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateCreating:
		return "creating"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateSaving:
		return "saving"
	case StateSubmitting:
		return "submitting"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
