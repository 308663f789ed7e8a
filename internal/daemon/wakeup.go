package daemon

import "time"

// Reason tells why the loop wakes up.
type Reason int

const (
	RunScripts Reason = iota
	ShowReminder
	UpdateUI
)

func (r Reason) String() string {
	switch r {
	case RunScripts:
		return "run-scripts"
	case ShowReminder:
		return "show-reminder"
	case UpdateUI:
		return "update-ui"
	default:
		return "unknown"
	}
}

// Wakeup is the next point in time the loop has to act.
type Wakeup struct {
	At     time.Time
	Reason Reason
}

// Candidate is an optional wakeup time.
type Candidate struct {
	At time.Time
	OK bool
}

// Select picks the earliest present candidate. Later reasons only win when
// strictly earlier, so ties go to RunScripts, then ShowReminder.
func Select(backup, reminder, ui Candidate) (Wakeup, bool) {
	var (
		best  Wakeup
		found bool
	)
	for i, c := range []Candidate{backup, reminder, ui} {
		if !c.OK {
			continue
		}
		if !found || c.At.Before(best.At) {
			best = Wakeup{At: c.At, Reason: Reason(i)}
			found = true
		}
	}
	return best, found
}
