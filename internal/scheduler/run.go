package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dfaust/backup-monitor/internal/duration"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/notify"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
)

// Notification timeouts.
const (
	ResultTimeout   = 6 * time.Second
	ReminderTimeout = 10 * time.Second
)

// Run runs the job called name, or every due job when name is AllDue, in
// configuration order. Jobs whose mount paths are unavailable move to
// WaitingForPaths instead. A failing payload only changes the job's state;
// the returned error reports a failure to persist a successful backup.
func (s *Scheduler) Run(ctx context.Context, name string) error {
	snap := s.deps.Settings.Load()
	if name != AllDue {
		if _, ok := snap.Job(name); !ok {
			s.manual[name]++
			s.log.Warning("manual run of unknown job `%s` ignored", name)
			return fmt.Errorf("%w: %s", ErrUnknownJob, name)
		}
	}

	for i := range snap.Jobs {
		job := &snap.Jobs[i]
		if name != AllDue {
			if job.Name != name {
				continue
			}
		} else if !due(s.deps.Clock.Now(), job, s.state(job)) {
			continue
		}

		err := s.runJob(ctx, snap, job, name != AllDue)
		s.Publish()
		s.deps.Tray.Update(tray.Data{Tooltip: tray.Text(s.Tooltip())})
		if err != nil {
			return err
		}
	}
	return nil
}

// unavailable returns the required paths of job that are not mounted, or not
// writable when the job asks for that.
func (s *Scheduler) unavailable(job *settings.Job) []string {
	required := job.RequiredPaths()
	missing := s.mounts.Missing(required)
	if !job.RequireWritable {
		return missing
	}
	for _, p := range required {
		if s.mounts.Has(p) && !s.deps.Writable(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

func (s *Scheduler) runJob(ctx context.Context, snap *settings.Settings, job *settings.Job, manual bool) error {
	if missing := s.unavailable(job); len(missing) > 0 {
		s.log.Debug("job `%s` waiting for %v", job.Name, missing)
		s.states[job.Name] = WaitingFor(missing)
		s.countAttempt(job.Name, manual)
		return nil
	}

	s.log.Info("running backup job `%s`", job.Name)
	s.states[job.Name] = InProgress()
	s.Publish()

	base := notify.Notification{
		AppName:  snap.Title,
		Icon:     iconFor(snap, job),
		Resident: true,
	}
	running := base
	running.Summary = "Running " + job.Name
	running.Timeout = notify.Never
	handle := s.show(running)

	s.deps.Tray.Update(tray.Data{Status: tray.Active, Tooltip: tray.Text(s.Tooltip())})

	res := s.deps.Runner.Run(ctx, payload.Spec{Name: job.Name, Script: job.BackupScript, EnvFile: job.EnvFile})
	now := s.deps.Clock.Now()
	if res.Output != "" {
		s.log.Debug("output of `%s`:\n%s", job.Name, res.Output)
	}

	var (
		summary, body string
		saveErr       error
	)
	switch res.Outcome {
	case payload.Success:
		took, _ := duration.Round(res.Duration, duration.Seconds, duration.Down)
		summary = job.Name + " finished"
		body = "Backup took " + duration.Format(took)
		s.states[job.Name] = Waiting()
		saveErr = s.recordSuccess(job.Name, now)
	case payload.ExitCode:
		summary = fmt.Sprintf("%s failed with exit code %d", job.Name, res.ExitCode)
		s.states[job.Name] = FailedAt(now, summary)
	case payload.Signaled:
		summary = job.Name + " failed"
		body = errText(res.Err)
		s.states[job.Name] = FailedAt(now, summary+": "+body)
	default:
		summary = job.Name + " failed with error"
		body = errText(res.Err)
		s.states[job.Name] = FailedAt(now, body)
	}
	if res.Success() {
		s.log.Info("%s", summary)
	} else {
		s.log.Warning("%s %s", summary, body)
	}
	s.record(ctx, history.KindBackup, job.Name, res, summary)

	result := base
	result.Summary = summary
	result.Body = body
	result.Timeout = ResultTimeout
	for _, a := range job.PostBackupActions {
		result.Actions = append(result.Actions, a.Label)
	}
	if err := handle.Update(result); err != nil {
		s.log.Warning("updating notification: %v", err)
	}
	s.countAttempt(job.Name, manual)

	if saveErr != nil {
		return saveErr
	}
	if len(job.PostBackupActions) == 0 {
		return nil
	}

	label, ok := s.awaitPostRunAction(ctx, handle)
	if !ok {
		return nil
	}
	action, found := job.Action(label)
	if !found {
		s.log.Warning("unknown post backup action %q for `%s`", label, job.Name)
		return nil
	}
	s.runAction(ctx, snap, job, action)
	return nil
}

// countAttempt publishes that a run of name is over, before any wait for a
// post-backup action.
func (s *Scheduler) countAttempt(name string, manual bool) {
	s.attempts[name]++
	if manual {
		s.manual[name]++
	}
	s.Publish()
}

// recordSuccess stores now as the job's last backup in the latest settings,
// saves them and publishes the result.
func (s *Scheduler) recordSuccess(name string, now time.Time) error {
	latest, ok := s.deps.Settings.Load().WithLastBackup(name, now)
	if !ok {
		s.log.Warning("job `%s` disappeared from the settings, not recording last backup", name)
		return nil
	}
	if err := s.deps.Repository.Save(latest); err != nil {
		return fmt.Errorf("saving last backup of %s: %w", name, err)
	}
	s.deps.Settings.Publish(latest)
	return nil
}

// awaitPostRunAction blocks until the user picks a post-backup action or
// dismisses the notification. Only daemon shutdown, through ctx, ends the
// wait early.
func (s *Scheduler) awaitPostRunAction(ctx context.Context, handle notify.Handle) (string, bool) {
	return handle.WaitForAction(ctx)
}

func (s *Scheduler) runAction(ctx context.Context, snap *settings.Settings, job *settings.Job, action settings.PostBackupAction) {
	s.log.Info("running post backup action `%s`", action.Label)
	res := s.deps.Runner.Run(ctx, payload.Spec{Name: job.Name, Script: action.Script, EnvFile: job.EnvFile})

	var summary, body string
	switch res.Outcome {
	case payload.Success:
		summary = action.Label + " finished"
	case payload.ExitCode, payload.Signaled:
		summary = action.Label + " failed"
	default:
		summary = action.Label + " failed with error"
		body = errText(res.Err)
	}
	s.record(ctx, history.KindAction, job.Name, res, summary)

	s.show(notify.Notification{
		AppName: snap.Title,
		Icon:    iconFor(snap, job),
		Summary: summary,
		Body:    body,
		Timeout: ResultTimeout,
	})
}

func (s *Scheduler) show(n notify.Notification) notify.Handle {
	h, err := s.deps.Notifier.Show(n)
	if err != nil {
		s.log.Warning("showing notification %q: %v", n.Summary, err)
		return notify.NopHandle()
	}
	return h
}

func (s *Scheduler) record(ctx context.Context, kind, job string, res payload.Result, message string) {
	if s.deps.History == nil {
		return
	}
	_, err := s.deps.History.Record(ctx, history.Run{
		Job:      job,
		Kind:     kind,
		Started:  res.Started,
		Finished: res.Started.Add(res.Duration),
		Outcome:  res.Outcome.String(),
		ExitCode: res.ExitCode,
		Message:  message,
		Output:   res.Output,
	})
	if err != nil {
		s.log.Warning("recording %s run of `%s`: %v", kind, job, err)
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func iconFor(snap *settings.Settings, job *settings.Job) string {
	if job.IconName != "" {
		return job.IconName
	}
	return snap.IconName
}
