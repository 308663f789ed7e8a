package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/dfaust/backup-monitor/internal/duration"
	"github.com/dfaust/backup-monitor/internal/settings"
)

// NoJobsTooltip is shown when no job is configured.
const NoJobsTooltip = "No backup jobs configured"

// jobTooltip renders the two status lines of one job.
func jobTooltip(now time.Time, job *settings.Job, st State) string {
	var last string
	if job.LastBackup != nil {
		ago, _ := duration.Round(now.Sub(earlier(*job.LastBackup, now)), duration.Minutes, duration.Down)
		last = "Last backup was " + duration.Format(ago) + " ago"
	} else {
		last = "Never backed up before"
	}

	var status string
	switch st.Kind {
	case WaitingForTime:
		in, _ := duration.Round(later(scheduled(now, job), now).Sub(now), duration.Minutes, duration.Down)
		status = "Next backup in " + duration.Format(in)
	case WaitingForPaths:
		quoted := make([]string, len(st.Missing))
		for i, p := range st.Missing {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		status = "Waiting for " + strings.Join(quoted, ", ") + " to be mounted"
	case Running:
		status = "Running"
	case Failed:
		status = "Failed: " + st.Message
	}

	return job.Name + ":\n" + last + "\n" + status
}
