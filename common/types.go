package common

import "time"

// JSON-RPC method names served by the daemon.
const (
	MethodVersion        = "system.getVersion"
	MethodJobRun         = "job.run"
	MethodJobList        = "job.list"
	MethodStatus         = "status.get"
	MethodSettingsReload = "settings.reload"
	MethodHistoryList    = "history.list"

	// NotifyTrayUpdate is pushed to tray frontends over the websocket.
	NotifyTrayUpdate = "tray.update"
)

type VersionResponse struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"build_type,omitempty"`
}

type RunParams struct {
	Job string `json:"job"`
}

type RunResponse struct {
	Job string `json:"job"`
	// Attempts is the job's attempt count when the request was queued.
	Attempts uint64 `json:"attempts"`
	// Ticket is the job's manual run count once this request was processed.
	Ticket uint64 `json:"ticket"`
}

type JobInfo struct {
	Name        string     `json:"name"`
	Interval    string     `json:"interval,omitempty"`
	Schedule    string     `json:"schedule,omitempty"`
	Reminder    string     `json:"reminder,omitempty"`
	MountPaths  []string   `json:"mount_paths,omitempty"`
	Actions     []string   `json:"post_backup_actions,omitempty"`
	LastBackup  *time.Time `json:"last_backup,omitempty"`
	RequireRW   bool       `json:"require_writable,omitempty"`
	HasEnvFile  bool       `json:"has_env_file,omitempty"`
	PayloadKind string     `json:"payload_kind"`
}

type ListResponse struct {
	Jobs []JobInfo `json:"jobs"`
}

type JobStatus struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Message      string     `json:"message,omitempty"`
	Missing      []string   `json:"missing,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	LastBackup   *time.Time `json:"last_backup,omitempty"`
	NextBackup   *time.Time `json:"next_backup,omitempty"`
	NextReminder *time.Time `json:"next_reminder,omitempty"`
	Attempts     uint64     `json:"attempts"`
	ManualRuns   uint64     `json:"manual_runs"`
}

type StatusResponse struct {
	Title          string      `json:"title"`
	NeedsAttention bool        `json:"needs_attention"`
	Tooltip        string      `json:"tooltip"`
	Mounts         []string    `json:"mounts,omitempty"`
	Jobs           []JobStatus `json:"jobs"`
}

type HistoryParams struct {
	Job   string `json:"job,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type HistoryEntry struct {
	ID       string    `json:"id"`
	Job      string    `json:"job"`
	Kind     string    `json:"kind"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Outcome  string    `json:"outcome"`
	ExitCode int       `json:"exit_code"`
	Message  string    `json:"message,omitempty"`
	Output   string    `json:"output,omitempty"`
}

type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// EmptyResponse is returned by methods without a result.
type EmptyResponse struct{}

// TrayState is the full tray picture pushed to frontends after every change.
type TrayState struct {
	Title   string    `json:"title"`
	Icon    string    `json:"icon"`
	Status  string    `json:"status"`
	Tooltip string    `json:"tooltip"`
	Jobs    []TrayJob `json:"jobs"`
}

// TrayJob is a job entry in the tray menu; picking it runs the job.
type TrayJob struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}
