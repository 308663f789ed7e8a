package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/internal/autostart"
	"github.com/dfaust/backup-monitor/internal/clock"
	"github.com/dfaust/backup-monitor/internal/mounts"
	"github.com/dfaust/backup-monitor/internal/notify"
	"github.com/dfaust/backup-monitor/internal/scheduler"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
	"github.com/dfaust/backup-monitor/pkg/logger"
)

// Reminder notification text.
const (
	ReminderSummary = "Backup out of date"
	ReminderBody    = "Make sure to run backups regularly"
)

// JobScheduler is the part of *scheduler.Scheduler the loop drives.
type JobScheduler interface {
	Run(ctx context.Context, name string) error
	NextBackup() (time.Time, bool)
	NextReminder() (time.Time, bool)
	NextUIUpdate() (time.Time, bool)
	Tooltip() string
	SetMounts(m mounts.Set)
	Publish()
}

// LoopDependencies are the collaborators of a Loop. Autostart and Notifier
// are optional.
type LoopDependencies struct {
	Clock      clock.Clock
	Queue      *Queue
	Scheduler  JobScheduler
	Settings   *settings.Store
	Repository settings.Repository
	Tray       tray.Updater
	Notifier   notify.Notifier
	Autostart  autostart.Manager
	Logger     logger.Logger
}

// appearance is implemented by tray updaters that show a title and icon.
type appearance interface {
	SetAppearance(title, icon string)
}

type nopTray struct{}

func (nopTray) Update(tray.Data) {}

// Loop is the control loop. It owns the scheduler and must run on a single
// goroutine.
type Loop struct {
	deps     LoopDependencies
	log      logger.Logger
	throttle ReminderThrottle
}

// NewLoop creates a loop.
func NewLoop(deps LoopDependencies) *Loop {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Tray == nil {
		deps.Tray = nopTray{}
	}
	return &Loop{deps: deps, log: deps.Logger}
}

// Run iterates until ctx is done, the queue disconnects or a job fails to
// persist its result.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.Step(ctx); err != nil {
			return err
		}
	}
}

// Step performs one iteration: refresh the tray, show a due reminder, then
// wait for the next event or wakeup and handle it.
func (l *Loop) Step(ctx context.Context) error {
	l.reconcileAutostart()

	now := l.deps.Clock.Now()
	snap := l.deps.Settings.Load()
	l.refreshTray(now, snap)

	raw, hasReminder := l.deps.Scheduler.NextReminder()
	if hasReminder && l.throttle.ShouldShow(now, l.throttle.Deadline(raw)) {
		l.showReminder(snap)
		l.throttle.Shown(now)
	}

	reminder := Candidate{}
	if hasReminder {
		reminder = Candidate{At: l.throttle.Deadline(raw), OK: true}
	}
	backup, okBackup := l.deps.Scheduler.NextBackup()
	ui, okUI := l.deps.Scheduler.NextUIUpdate()
	wakeup, ok := Select(Candidate{backup, okBackup}, reminder, Candidate{ui, okUI})

	timeout := NoTimeout
	if ok {
		timeout = max(wakeup.At.Sub(now), 0)
		l.log.Debug("next wakeup in %s (%s)", timeout, wakeup.Reason)
	}

	ev, err := l.deps.Queue.Receive(ctx, timeout)
	switch {
	case errors.Is(err, ErrTimeout):
		if !ok || wakeup.Reason == RunScripts {
			return l.run(ctx, scheduler.AllDue)
		}
		return nil
	case err != nil:
		return err
	}
	return l.handle(ctx, ev)
}

func (l *Loop) handle(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case SettingsChanged:
		l.reload()
		return nil
	case ManualRun:
		return l.run(ctx, e.Name)
	case MountsChanged:
		l.deps.Scheduler.SetMounts(mounts.Parse(e.Snapshot))
		return l.run(ctx, scheduler.AllDue)
	default:
		return fmt.Errorf("unexpected event %T", ev)
	}
}

func (l *Loop) run(ctx context.Context, name string) error {
	err := l.deps.Scheduler.Run(ctx, name)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		return nil
	}
	return err
}

// reload replaces the settings snapshot. A broken file keeps the previous
// snapshot.
func (l *Loop) reload() {
	l.log.Info("reloading settings")
	snap, err := l.deps.Repository.Load()
	if err != nil {
		l.log.Error("reloading settings: %v", err)
		return
	}
	l.deps.Settings.Publish(snap)
	l.deps.Scheduler.Publish()
}

func (l *Loop) reconcileAutostart() {
	if l.deps.Autostart == nil {
		return
	}
	if err := autostart.Reconcile(l.deps.Autostart, l.deps.Settings.Load().Autostart, l.log); err != nil {
		l.log.Error("autostart: %v", err)
	}
}

func (l *Loop) refreshTray(now time.Time, snap *settings.Settings) {
	if a, ok := l.deps.Tray.(appearance); ok {
		a.SetAppearance(snap.Title, snap.IconName)
	}
	status := tray.Passive
	if next, ok := l.deps.Scheduler.NextReminder(); ok && !next.After(now) {
		status = tray.NeedsAttention
	}
	jobs := make([]common.TrayJob, len(snap.Jobs))
	for i, j := range snap.Jobs {
		icon := j.IconName
		if icon == "" {
			icon = snap.IconName
		}
		jobs[i] = common.TrayJob{Name: j.Name, Icon: icon}
	}
	l.deps.Tray.Update(tray.Data{
		Status:  status,
		Tooltip: tray.Text(l.deps.Scheduler.Tooltip()),
		Jobs:    jobs,
	})
}

func (l *Loop) showReminder(snap *settings.Settings) {
	l.log.Info("backup reminder due")
	_, err := l.deps.Notifier.Show(notify.Notification{
		AppName: snap.Title,
		Icon:    snap.IconName,
		Summary: ReminderSummary,
		Body:    ReminderBody,
		Timeout: scheduler.ReminderTimeout,
	})
	if err != nil {
		l.log.Warning("showing reminder: %v", err)
	}
}
