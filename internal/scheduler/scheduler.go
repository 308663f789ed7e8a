package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dfaust/backup-monitor/internal/clock"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/mounts"
	"github.com/dfaust/backup-monitor/internal/notify"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
	"github.com/dfaust/backup-monitor/pkg/logger"
)

// AllDue selects every due job in Run.
const AllDue = ""

// ErrUnknownJob is returned for operations naming a job that is not
// configured.
var ErrUnknownJob = errors.New("unknown job")

// PayloadRunner executes job payloads.
type PayloadRunner interface {
	Run(ctx context.Context, spec payload.Spec) payload.Result
}

// Dependencies are the collaborators of a Scheduler. History and Writable
// are optional.
type Dependencies struct {
	Clock      clock.Clock
	Settings   *settings.Store
	Repository settings.Repository
	Runner     PayloadRunner
	Notifier   notify.Notifier
	Tray       tray.Updater
	History    history.Recorder
	// Writable probes mount paths of jobs with require-writable set.
	Writable func(path string) bool
	Logger   logger.Logger
}

// JobView is the observable state of one job.
type JobView struct {
	Name         string
	State        State
	LastBackup   *time.Time
	NextBackup   time.Time
	NextReminder time.Time
	// Attempts counts how often Run processed the job, whether it ran or
	// was held back by missing mounts.
	Attempts uint64
	// ManualRuns counts the processed manual run requests for the job.
	ManualRuns uint64
}

// View is a snapshot of the scheduler published for other goroutines.
type View struct {
	At             time.Time
	Jobs           []JobView
	Mounts         []string
	Tooltip        string
	NeedsAttention bool
}

// Job returns the view of the named job.
func (v *View) Job(name string) (JobView, bool) {
	for _, j := range v.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobView{}, false
}

// Scheduler owns job states and the mount set. All methods except View must
// be called from the control goroutine.
type Scheduler struct {
	deps     Dependencies
	log      logger.Logger
	states   map[string]State
	attempts map[string]uint64
	manual   map[string]uint64
	mounts   mounts.Set
	view     atomic.Pointer[View]
}

// New creates a scheduler with every job waiting for its time and the given
// initial mount set.
func New(deps Dependencies, initial mounts.Set) *Scheduler {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Writable == nil {
		deps.Writable = mounts.Writable
	}
	if deps.Tray == nil {
		deps.Tray = nopTray{}
	}
	if initial == nil {
		initial = mounts.NewSet()
	}
	s := &Scheduler{
		deps:     deps,
		log:      deps.Logger,
		states:   make(map[string]State),
		attempts: make(map[string]uint64),
		manual:   make(map[string]uint64),
		mounts:   initial,
	}
	s.Publish()
	return s
}

// state returns the effective state of job.
func (s *Scheduler) state(job *settings.Job) State {
	st, ok := s.states[job.Name]
	if !ok {
		return Waiting()
	}
	return st.settle(job.RequiredPaths())
}

// State returns the effective state of the named job.
func (s *Scheduler) State(name string) (State, bool) {
	job, ok := s.deps.Settings.Load().Job(name)
	if !ok {
		return State{}, false
	}
	return s.state(job), true
}

// NextBackup returns the earliest next backup over all jobs.
func (s *Scheduler) NextBackup() (time.Time, bool) {
	return s.earliest(NextBackup)
}

// NextReminder returns the earliest reminder over all jobs that are not
// running.
func (s *Scheduler) NextReminder() (time.Time, bool) {
	return s.earliest(NextReminder)
}

// NextUIUpdate returns the earliest tooltip refresh over all jobs waiting for
// their time.
func (s *Scheduler) NextUIUpdate() (time.Time, bool) {
	return s.earliest(NextUIUpdate)
}

func (s *Scheduler) earliest(fn func(time.Time, *settings.Job, State) (time.Time, bool)) (time.Time, bool) {
	now := s.deps.Clock.Now()
	snap := s.deps.Settings.Load()
	var (
		best  time.Time
		found bool
	)
	for i := range snap.Jobs {
		job := &snap.Jobs[i]
		t, ok := fn(now, job, s.state(job))
		if ok && (!found || t.Before(best)) {
			best, found = t, true
		}
	}
	return best, found
}

// Tooltip renders the status of every job, separated by blank lines.
func (s *Scheduler) Tooltip() string {
	now := s.deps.Clock.Now()
	snap := s.deps.Settings.Load()
	if len(snap.Jobs) == 0 {
		return NoJobsTooltip
	}
	blocks := make([]string, len(snap.Jobs))
	for i := range snap.Jobs {
		job := &snap.Jobs[i]
		blocks[i] = jobTooltip(now, job, s.state(job))
	}
	return strings.Join(blocks, "\n\n")
}

// NeedsAttention reports whether any reminder is due.
func (s *Scheduler) NeedsAttention() bool {
	next, ok := s.NextReminder()
	return ok && !next.After(s.deps.Clock.Now())
}

// SetMounts replaces the mount set. Job states are left alone; the next Run
// re-evaluates them.
func (s *Scheduler) SetMounts(next mounts.Set) {
	added, removed := s.mounts.Diff(next)
	for _, p := range added {
		s.log.Debug("mounted: %s", p)
	}
	for _, p := range removed {
		s.log.Debug("unmounted: %s", p)
	}
	s.mounts = next
	s.Publish()
}

// Mounts returns the current mount set.
func (s *Scheduler) Mounts() mounts.Set {
	return s.mounts
}

// Publish recomputes the View read by other goroutines.
func (s *Scheduler) Publish() {
	now := s.deps.Clock.Now()
	snap := s.deps.Settings.Load()
	v := &View{
		At:             now,
		Jobs:           make([]JobView, 0, len(snap.Jobs)),
		Mounts:         s.mounts.Sorted(),
		Tooltip:        s.Tooltip(),
		NeedsAttention: s.NeedsAttention(),
	}
	for i := range snap.Jobs {
		job := &snap.Jobs[i]
		st := s.state(job)
		jv := JobView{Name: job.Name, State: st, LastBackup: job.LastBackup, Attempts: s.attempts[job.Name], ManualRuns: s.manual[job.Name]}
		if t, ok := NextBackup(now, job, st); ok {
			jv.NextBackup = t
		}
		if t, ok := NextReminder(now, job, st); ok {
			jv.NextReminder = t
		}
		v.Jobs = append(v.Jobs, jv)
	}
	s.view.Store(v)
}

type nopTray struct{}

func (nopTray) Update(tray.Data) {}

// View returns the last published snapshot. Safe for concurrent use.
func (s *Scheduler) View() *View {
	return s.view.Load()
}
