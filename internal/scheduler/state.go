package scheduler

import (
	"time"
)

// StateKind enumerates job states.
type StateKind int

const (
	WaitingForTime StateKind = iota
	WaitingForPaths
	Running
	Failed
)

func (k StateKind) String() string {
	switch k {
	case WaitingForTime:
		return "waiting-for-time"
	case WaitingForPaths:
		return "waiting-for-paths"
	case Running:
		return "running"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is the runtime state of one job. Missing is set for
// WaitingForPaths; At and Message are set for Failed.
type State struct {
	Kind    StateKind
	Missing []string
	At      time.Time
	Message string
}

// Waiting returns the default state.
func Waiting() State { return State{Kind: WaitingForTime} }

// WaitingFor returns a state blocked on the given unavailable paths.
func WaitingFor(missing []string) State {
	return State{Kind: WaitingForPaths, Missing: append([]string(nil), missing...)}
}

// InProgress returns the running state.
func InProgress() State { return State{Kind: Running} }

// FailedAt returns a failure recorded at t.
func FailedAt(t time.Time, msg string) State {
	return State{Kind: Failed, At: t, Message: msg}
}

// settle returns WaitingForTime when a WaitingForPaths state no longer
// applies to required, i.e. none of required is among the missing paths.
func (s State) settle(required []string) State {
	if s.Kind != WaitingForPaths {
		return s
	}
	for _, p := range required {
		for _, m := range s.Missing {
			if p == m {
				return s
			}
		}
	}
	return Waiting()
}
