package boundary

import (
	"time"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
)

// State of a boundary.
type State int

const (
	StateNormal State = iota
	StateErrored
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateErrored:
		return "errored"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// ValidTransitions lists the allowed next states for each state.
// Any state may return to Normal through a full reset.
var ValidTransitions = map[State][]State{
	StateNormal:   {StateErrored},
	StateErrored:  {StateRetrying, StateNormal},
	StateRetrying: {StateNormal, StateErrored},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Snapshot is a point-in-time copy of a boundary's state.
type Snapshot struct {
	State       State
	HasError    bool
	Err         error
	Details     apperr.Details
	Info        ErrorInfo
	RetryCount  int
	MaxRetries  int
	IsRetrying  bool
	CanRetry    bool
	LastRetryAt time.Time
}

// Exhausted reports whether the retry budget is spent.
func (s Snapshot) Exhausted() bool {
	return s.MaxRetries > 0 && s.RetryCount >= s.MaxRetries
}
