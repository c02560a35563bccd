package download

// State is the lifecycle position of one download task.
type State int

const (
	StatePending State = iota
	StateRunning
	StatePaused
	StateCancelled
	StateCompleted
	StateFailed
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	switch s {
	case StateCancelled, StateCompleted, StateFailed:
		return true
	}
	return false
}

// legalTransitions lists the edges of the task state machine. Terminal
// states have no entry.
var legalTransitions = map[State][]State{
	StatePending: {StateRunning, StateCancelled},
	StateRunning: {StatePaused, StateCompleted, StateFailed, StateCancelled},
	StatePaused:  {StateRunning, StateCancelled},
}

// CanTransition reports whether next is a legal move from s.
func (s State) CanTransition(next State) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
