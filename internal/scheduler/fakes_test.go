package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dfaust/backup-monitor/internal/clock"
	"github.com/dfaust/backup-monitor/internal/duration"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/mounts"
	"github.com/dfaust/backup-monitor/internal/notify"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
	"github.com/dfaust/backup-monitor/pkg/logger"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRunner struct {
	specs   []payload.Spec
	results []payload.Result
}

func (f *fakeRunner) Run(_ context.Context, spec payload.Spec) payload.Result {
	f.specs = append(f.specs, spec)
	if len(f.results) == 0 {
		return payload.Result{Outcome: payload.Success, Started: t0, Duration: time.Second}
	}
	res := f.results[0]
	f.results = f.results[1:]
	return res
}

type fakeHandle struct {
	n       *fakeNotifier
	updates []notify.Notification
}

func (h *fakeHandle) Update(n notify.Notification) error {
	h.updates = append(h.updates, n)
	return nil
}

func (h *fakeHandle) WaitForAction(context.Context) (string, bool) {
	h.n.waits++
	if h.n.onWait != nil {
		h.n.onWait()
	}
	if h.n.pick == "" {
		return "", false
	}
	return h.n.pick, true
}

type fakeNotifier struct {
	shown   []notify.Notification
	handles []*fakeHandle
	pick    string
	waits   int
	fail    bool
	onWait  func()
}

func (f *fakeNotifier) Show(n notify.Notification) (notify.Handle, error) {
	if f.fail {
		return nil, errors.New("no notification daemon")
	}
	f.shown = append(f.shown, n)
	h := &fakeHandle{n: f}
	f.handles = append(f.handles, h)
	return h, nil
}

type fakeRepo struct {
	saved []*settings.Settings
	err   error
}

func (f *fakeRepo) Load() (*settings.Settings, error) {
	if len(f.saved) == 0 {
		return settings.Default(), nil
	}
	return f.saved[len(f.saved)-1], nil
}

func (f *fakeRepo) Save(s *settings.Settings) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, s)
	return nil
}

type fakeTray struct {
	updates []tray.Data
}

func (f *fakeTray) Update(d tray.Data) { f.updates = append(f.updates, d) }

type fakeHistory struct {
	runs []history.Run
}

func (f *fakeHistory) Record(_ context.Context, r history.Run) (string, error) {
	f.runs = append(f.runs, r)
	return "id", nil
}

type harness struct {
	clock    *clock.Fixed
	store    *settings.Store
	repo     *fakeRepo
	runner   *fakeRunner
	notifier *fakeNotifier
	tray     *fakeTray
	history  *fakeHistory
	log      *logger.MockLogger
	writable map[string]bool
	s        *Scheduler
}

func newHarness(t *testing.T, jobs []settings.Job, mounted ...string) *harness {
	t.Helper()
	snap := settings.Default()
	snap.Jobs = jobs
	if err := snap.Validate(); err != nil {
		t.Fatalf("invalid test settings: %v", err)
	}
	h := &harness{
		clock:    clock.NewFixed(t0),
		store:    settings.NewStore(snap),
		repo:     &fakeRepo{},
		runner:   &fakeRunner{},
		notifier: &fakeNotifier{},
		tray:     &fakeTray{},
		history:  &fakeHistory{},
		log:      logger.NewMockLogger(),
		writable: map[string]bool{},
	}
	h.s = New(Dependencies{
		Clock:      h.clock,
		Settings:   h.store,
		Repository: h.repo,
		Runner:     h.runner,
		Notifier:   h.notifier,
		Tray:       h.tray,
		History:    h.history,
		Writable:   func(p string) bool { return h.writable[p] },
		Logger:     h.log,
	}, mounts.NewSet(mounted...))
	return h
}

func ptr(t time.Time) *time.Time { return &t }

func job(name string, interval time.Duration) settings.Job {
	return settings.Job{
		Name:         name,
		BackupScript: "#!/bin/sh\nexit 0\n",
		Interval:     duration.Duration(interval),
	}
}
