package daemon

import "time"

// ReminderInterval is the minimum spacing between two reminder
// notifications.
const ReminderInterval = 4 * time.Hour

// ReminderThrottle spaces out "backup out of date" notifications.
type ReminderThrottle struct {
	last time.Time
	set  bool
}

// Deadline returns when a reminder due at raw may be shown.
func (r *ReminderThrottle) Deadline(raw time.Time) time.Time {
	if !r.set {
		return raw
	}
	if earliest := r.last.Add(ReminderInterval); earliest.After(raw) {
		return earliest
	}
	return raw
}

// ShouldShow reports whether a reminder with the given deadline may be shown
// at now.
func (r *ReminderThrottle) ShouldShow(now, deadline time.Time) bool {
	if deadline.After(now) {
		return false
	}
	return !r.set || now.Sub(r.last) >= ReminderInterval
}

// Shown records that a reminder was shown at now.
func (r *ReminderThrottle) Shown(now time.Time) {
	r.last = now
	r.set = true
}

// Last returns when the last reminder was shown.
func (r *ReminderThrottle) Last() (time.Time, bool) {
	return r.last, r.set
}
