package scheduler

import (
	"time"

	"github.com/adhocore/gronx"
	"github.com/dfaust/backup-monitor/internal/duration"
	"github.com/dfaust/backup-monitor/internal/settings"
)

// RetryInterval is the delay before a failed job is retried.
const RetryInterval = time.Hour

// uiEpsilon pushes a tooltip refresh just past the minute boundary it
// targets, so the rounded values have already flipped when it fires.
const uiEpsilon = time.Millisecond

// scheduled returns the job's time-based next backup: now when it never ran,
// else the next cron tick after the last backup or last backup plus interval.
func scheduled(now time.Time, job *settings.Job) time.Time {
	if job.LastBackup == nil {
		return now
	}
	last := *job.LastBackup
	if job.Schedule != "" {
		// cron fields are wall clock times in the local zone
		next, err := gronx.NextTickAfter(job.Schedule, last.In(time.Local), false)
		if err != nil {
			return now
		}
		return next
	}
	return last.Add(job.Interval.Std())
}

// NextBackup returns when job should run next given its state. ok is false
// for jobs waiting for paths or running.
func NextBackup(now time.Time, job *settings.Job, st State) (next time.Time, ok bool) {
	switch st.Kind {
	case WaitingForTime:
		return scheduled(now, job), true
	case Failed:
		return st.At.Add(RetryInterval), true
	default:
		return time.Time{}, false
	}
}

// NextReminder returns when the user should be reminded about job. ok is
// false when no reminder is configured or the job is running.
func NextReminder(now time.Time, job *settings.Job, st State) (next time.Time, ok bool) {
	if !job.HasReminder() || st.Kind == Running {
		return time.Time{}, false
	}
	if job.LastBackup == nil {
		return now, true
	}
	return job.LastBackup.Add(job.Reminder.Std()), true
}

// NextUIUpdate returns when the tooltip text for job changes next: the
// earlier of the "next backup in" countdown dropping below a whole minute and
// the "last backup was" age passing one. Only jobs waiting for their time
// have changing text.
func NextUIUpdate(now time.Time, job *settings.Job, st State) (next time.Time, ok bool) {
	if st.Kind != WaitingForTime {
		return time.Time{}, false
	}

	_, rest := duration.Round(later(scheduled(now, job), now).Sub(now), duration.Minutes, duration.Down)
	if job.LastBackup != nil {
		_, sinceRest := duration.Round(now.Sub(earlier(*job.LastBackup, now)), duration.Minutes, duration.Up)
		if sinceRest < rest {
			rest = sinceRest
		}
	}
	return now.Add(rest + uiEpsilon), true
}

// due reports whether a Run over all jobs should pick job. Jobs waiting for
// paths stay due by their regular schedule so a mount change can start them.
func due(now time.Time, job *settings.Job, st State) bool {
	switch st.Kind {
	case Running:
		return false
	case Failed:
		return !st.At.Add(RetryInterval).After(now)
	default:
		return !scheduled(now, job).After(now)
	}
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
