package cmd

import "time"

const (
	// DEF_WAIT_TIMEOUT bounds `run --wait`; post-backup actions can keep a
	// run open for long.
	DEF_WAIT_TIMEOUT  = 24 * time.Hour
	DEF_POLL_INTERVAL = 500 * time.Millisecond
	DEF_RPC_TIMEOUT   = 10 * time.Second
	DEF_SHUTDOWN      = 10 * time.Second
)

const DESCRIPTION = `
backup-monitor runs your backup scripts on a schedule, waits for
backup drives to be mounted, reminds you when backups fall behind
and shows their status in the system tray.
`

const (
	DaemonDescription = `The daemon command starts the scheduler. It reads
backup-monitor.yaml from the config directory, creating it
with defaults when missing, and reloads it on every change.

Example:
        backup-monitor daemon --log-file ~/.cache/backup-monitor.log

`
	RunDescription = `The run command asks the daemon to run a job right
away, ignoring its schedule. With --wait it blocks until the
run finished and exits non-zero when the job failed.

Example:
        backup-monitor run home --wait

`
	StatusDescription = `The status command shows the state of every job,
when it last ran and when it runs next.

Example:
        backup-monitor status

`
	ListDescription = `The list command shows the configured jobs.

Example:
        backup-monitor list

`
	HistoryDescription = `The history command shows recorded runs, newest
first, optionally for a single job.

Example:
        backup-monitor history home -n 5

`
	ReloadDescription = `The reload command asks the daemon to re-read its
settings file.

Example:
        backup-monitor reload

`
	CheckDescription = `The check command validates the settings file without
contacting the daemon.

Example:
        backup-monitor check

`
	WatchDescription = `The watch command prints the tray state every time
the daemon pushes a change.

Example:
        backup-monitor watch

`
)

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCategories}}{{if .Name}}

{{.Name}}:{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{else}}{{range .VisibleCommands}}
  {{join .Names ", "}}{{"\t"}}{{.Usage}}{{end}}{{end}}{{end}}{{end}}{{if .VisibleFlags}}

Global Options:
  {{range $index, $option := .VisibleFlags}}{{if $index}}
  {{end}}{{$option}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about a command.
`

const CMD_HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}}{{if .VisibleFlags}} [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{if .Description}}
{{.Description}}{{end}}{{if .VisibleFlags}}Options:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}
`
