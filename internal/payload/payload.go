// Package payload materializes a job's backup script and runs it.
//
// A payload starting with "#!" is written to a temporary executable and run
// directly. Anything else is handed to /bin/sh, so a bare path such as
// "/usr/local/bin/backup.sh" or a one line command works as well.
package payload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
)

// OutputTail is the number of trailing output bytes kept per run.
const OutputTail = 4 << 10

// Shell runs payloads without an interpreter line.
const Shell = "/bin/sh"

// JobEnv names the environment variable holding the job name.
const JobEnv = "BACKUP_MONITOR_JOB"

// Kind tells how a payload is executed.
type Kind int

const (
	// ShellScript is run through Shell.
	ShellScript Kind = iota
	// Interpreted starts with "#!" and is executed directly.
	Interpreted
)

func (k Kind) String() string {
	if k == Interpreted {
		return "interpreted"
	}
	return "shell"
}

// KindOf classifies script.
func KindOf(script string) Kind {
	if strings.HasPrefix(script, "#!") {
		return Interpreted
	}
	return ShellScript
}

// Outcome classifies a finished run.
type Outcome int

const (
	Success Outcome = iota
	// ExitCode means the process exited with a non-zero status.
	ExitCode
	// Signaled means the process was terminated by a signal.
	Signaled
	// SpawnError means the process could not be started.
	SpawnError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case ExitCode:
		return "exit-code"
	case Signaled:
		return "signaled"
	default:
		return "spawn-error"
	}
}

// Result describes one payload run.
type Result struct {
	Outcome  Outcome
	ExitCode int
	// Err is the OS error for Signaled and SpawnError.
	Err      error
	Started  time.Time
	Duration time.Duration
	// Output is the tail of combined stdout and stderr.
	Output string
}

// Success reports whether the payload exited with status 0.
func (r Result) Success() bool { return r.Outcome == Success }

// Spec is a payload to run.
type Spec struct {
	// Name is exported to the payload as JobEnv.
	Name    string
	Script  string
	EnvFile string
}

// Runner runs payloads. Temporary script files are created on fs, which must
// be backed by the OS file system for execution to work.
type Runner struct {
	fs     afero.Fs
	tmpDir string
	log    logger.Logger
}

// NewRunner creates a runner writing temporary scripts below tmpDir ("" for
// the system default).
func NewRunner(fs afero.Fs, tmpDir string, l logger.Logger) *Runner {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Runner{fs: fs, tmpDir: tmpDir, log: l}
}

// Run materializes and executes spec, blocking until it exits. Canceling
// ctx does not stop a started payload.
func (r *Runner) Run(ctx context.Context, spec Spec) Result {
	start := time.Now()
	res := r.run(ctx, spec)
	res.Started = start
	res.Duration = time.Since(start)
	return res
}

func (r *Runner) run(ctx context.Context, spec Spec) Result {
	env, err := r.environ(spec)
	if err != nil {
		return Result{Outcome: SpawnError, ExitCode: -1, Err: err}
	}

	path, err := r.materialize(spec.Script)
	if err != nil {
		return Result{Outcome: SpawnError, ExitCode: -1, Err: err}
	}
	defer func() {
		if err := r.fs.Remove(path); err != nil {
			r.log.Warning("removing %s: %v", path, err)
		}
	}()

	// a backup is never aborted halfway, not even on daemon shutdown
	ctx = context.WithoutCancel(ctx)
	var cmd *exec.Cmd
	if KindOf(spec.Script) == Interpreted {
		cmd = exec.CommandContext(ctx, path)
	} else {
		cmd = exec.CommandContext(ctx, Shell, path)
	}
	out := newTail(OutputTail)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Env = env

	r.log.Debug("executing %s payload for %s", KindOf(spec.Script), spec.Name)
	err = cmd.Run()
	res := classify(err)
	res.Output = out.String()
	return res
}

func classify(err error) Result {
	if err == nil {
		return Result{Outcome: Success}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return Result{Outcome: ExitCode, ExitCode: code}
		}
		return Result{Outcome: Signaled, ExitCode: -1, Err: err}
	}
	return Result{Outcome: SpawnError, ExitCode: -1, Err: err}
}

func (r *Runner) materialize(script string) (string, error) {
	f, err := afero.TempFile(r.fs, r.tmpDir, "backup-monitor-*")
	if err != nil {
		return "", fmt.Errorf("create payload file: %w", err)
	}
	name := f.Name()
	if _, err := f.WriteString(script); err != nil {
		f.Close()
		_ = r.fs.Remove(name)
		return "", fmt.Errorf("write payload file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = r.fs.Remove(name)
		return "", fmt.Errorf("close payload file: %w", err)
	}
	if err := r.fs.Chmod(name, 0o700); err != nil {
		_ = r.fs.Remove(name)
		return "", fmt.Errorf("chmod payload file: %w", err)
	}
	return name, nil
}

func (r *Runner) environ(spec Spec) ([]string, error) {
	env := append(os.Environ(), JobEnv+"="+spec.Name)
	if spec.EnvFile == "" {
		return env, nil
	}
	vars, err := godotenv.Read(spec.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", spec.EnvFile, err)
	}
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env, nil
}
