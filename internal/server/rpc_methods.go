package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/internal/daemon"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/scheduler"
	"github.com/dfaust/backup-monitor/internal/settings"
)

// Custom JSON-RPC error codes.
const (
	codeUnknownJob      = jrpc2.Code(-32001)
	codeStopping        = jrpc2.Code(-32002)
	codeHistoryDisabled = jrpc2.Code(-32003)
	codeInvalidParams   = jrpc2.Code(-32602)
)

// EventSink accepts events for the control loop.
type EventSink interface {
	Push(ev daemon.Event) bool
}

// ViewSource exposes the last published scheduler view.
type ViewSource interface {
	View() *scheduler.View
}

// HistoryLister lists recorded runs, newest first.
type HistoryLister interface {
	List(ctx context.Context, job string, limit int) ([]history.Run, error)
}

// VersionInfo identifies the running daemon build.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildType string
}

// API implements the JSON-RPC methods of the daemon. It never touches the
// scheduler directly; requests that change state go through Events.
type API struct {
	Version  VersionInfo
	Events   EventSink
	Settings *settings.Store
	Views    ViewSource
	// History is optional.
	History HistoryLister

	mu     sync.Mutex
	queued map[string]uint64
}

// Methods returns the method table shared by the HTTP bridge and tray
// websocket connections.
func (a *API) Methods() handler.Map {
	return handler.Map{
		common.MethodVersion:        handler.New(a.systemGetVersion),
		common.MethodJobRun:         handler.New(a.jobRun),
		common.MethodJobList:        handler.New(a.jobList),
		common.MethodStatus:         handler.New(a.statusGet),
		common.MethodSettingsReload: handler.New(a.settingsReload),
		common.MethodHistoryList:    handler.New(a.historyList),
	}
}

func (a *API) systemGetVersion(_ context.Context) (*common.VersionResponse, error) {
	return &common.VersionResponse{
		Version:   a.Version.Version,
		Commit:    a.Version.Commit,
		BuildType: a.Version.BuildType,
	}, nil
}

// jobRun queues a manual run. The reply carries the job's attempt count at
// queue time so callers can wait for it to increase.
func (a *API) jobRun(_ context.Context, p *common.RunParams) (*common.RunResponse, error) {
	if p.Job == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "missing required param: job"}
	}
	if _, ok := a.Settings.Load().Job(p.Job); !ok {
		return nil, &jrpc2.Error{Code: codeUnknownJob, Message: "unknown job: " + p.Job}
	}
	var attempts uint64
	if jv, ok := a.Views.View().Job(p.Job); ok {
		attempts = jv.Attempts
	}
	ticket, ok := a.queueRun(p.Job)
	if !ok {
		return nil, &jrpc2.Error{Code: codeStopping, Message: "daemon is shutting down"}
	}
	return &common.RunResponse{Job: p.Job, Attempts: attempts, Ticket: ticket}, nil
}

// queueRun pushes a manual run of job and returns how many manual runs of
// job the scheduler will have processed once it handled this one. The lock
// keeps ticket order equal to queue order.
func (a *API) queueRun(job string) (uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.Events.Push(daemon.ManualRun{Name: job}) {
		return 0, false
	}
	if a.queued == nil {
		a.queued = make(map[string]uint64)
	}
	a.queued[job]++
	return a.queued[job], true
}

func (a *API) jobList(_ context.Context) (*common.ListResponse, error) {
	snap := a.Settings.Load()
	jobs := make([]common.JobInfo, 0, len(snap.Jobs))
	for _, j := range snap.Jobs {
		info := common.JobInfo{
			Name:        j.Name,
			Schedule:    j.Schedule,
			MountPaths:  j.RequiredPaths(),
			LastBackup:  j.LastBackup,
			RequireRW:   j.RequireWritable,
			HasEnvFile:  j.EnvFile != "",
			PayloadKind: payload.KindOf(j.BackupScript).String(),
		}
		if j.Interval > 0 {
			info.Interval = j.Interval.String()
		}
		if j.HasReminder() {
			info.Reminder = j.Reminder.String()
		}
		for _, act := range j.PostBackupActions {
			info.Actions = append(info.Actions, act.Label)
		}
		jobs = append(jobs, info)
	}
	return &common.ListResponse{Jobs: jobs}, nil
}

func (a *API) statusGet(_ context.Context) (*common.StatusResponse, error) {
	v := a.Views.View()
	resp := &common.StatusResponse{
		Title:          a.Settings.Load().Title,
		NeedsAttention: v.NeedsAttention,
		Tooltip:        v.Tooltip,
		Mounts:         v.Mounts,
		Jobs:           make([]common.JobStatus, 0, len(v.Jobs)),
	}
	for _, jv := range v.Jobs {
		st := common.JobStatus{
			Name:         jv.Name,
			State:        jv.State.Kind.String(),
			Message:      jv.State.Message,
			Missing:      jv.State.Missing,
			LastBackup:   jv.LastBackup,
			NextBackup:   optional(jv.NextBackup),
			NextReminder: optional(jv.NextReminder),
			Attempts:     jv.Attempts,
			ManualRuns:   jv.ManualRuns,
		}
		if jv.State.Kind == scheduler.Failed {
			st.FailedAt = optional(jv.State.At)
		}
		resp.Jobs = append(resp.Jobs, st)
	}
	return resp, nil
}

func (a *API) settingsReload(_ context.Context) (*common.EmptyResponse, error) {
	if !a.Events.Push(daemon.SettingsChanged{}) {
		return nil, &jrpc2.Error{Code: codeStopping, Message: "daemon is shutting down"}
	}
	return &common.EmptyResponse{}, nil
}

func (a *API) historyList(ctx context.Context, p *common.HistoryParams) (*common.HistoryResponse, error) {
	if a.History == nil {
		return nil, &jrpc2.Error{Code: codeHistoryDisabled, Message: "run history is disabled"}
	}
	if p.Limit < 0 {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "limit must not be negative"}
	}
	limit := p.Limit
	if limit == 0 {
		limit = history.DefaultLimit
	}
	runs, err := a.History.List(ctx, p.Job, limit)
	if errors.Is(err, history.ErrClosed) {
		return nil, &jrpc2.Error{Code: codeStopping, Message: err.Error()}
	}
	if err != nil {
		return nil, err
	}
	resp := &common.HistoryResponse{Entries: make([]common.HistoryEntry, 0, len(runs))}
	for _, r := range runs {
		resp.Entries = append(resp.Entries, common.HistoryEntry{
			ID:       r.ID,
			Job:      r.Job,
			Kind:     r.Kind,
			Started:  r.Started,
			Finished: r.Finished,
			Outcome:  r.Outcome,
			ExitCode: r.ExitCode,
			Message:  r.Message,
			Output:   r.Output,
		})
	}
	return resp, nil
}

func optional(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
