// Package settings holds the backup job configuration, reads and writes the
// YAML settings file and publishes immutable snapshots to the rest of the
// daemon.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dfaust/backup-monitor/internal/duration"
	"gopkg.in/yaml.v3"
)

// Settings validation errors.
var (
	ErrDuplicateJob    = errors.New("job names must be unique")
	ErrInvalidJob      = errors.New("invalid job")
	ErrInvalidSettings = errors.New("invalid settings")
)

const fileHeader = "# see https://github.com/dfaust/backup-monitor/blob/master/README.md for instructions\n"

// PostBackupAction is a follow-up the user can pick from the notification
// shown after a backup finished, e.g. "Unmount backup disk".
type PostBackupAction struct {
	Label  string `yaml:"label"`
	Script string `yaml:"script"`
}

// Job is one configured backup task.
type Job struct {
	Name     string `yaml:"name"`
	IconName string `yaml:"icon-name,omitempty"`

	// BackupScript is either a path to an executable or inline script text
	// starting with "#!".
	BackupScript string `yaml:"backup-script"`

	// BackupPath is the single mount path accepted by older settings files.
	// It is merged into MountPaths by RequiredPaths.
	BackupPath string   `yaml:"backup-path,omitempty"`
	MountPaths []string `yaml:"mount-paths,omitempty"`

	Interval duration.Duration `yaml:"interval,omitempty"`
	// Schedule is a cron expression used instead of Interval.
	Schedule string            `yaml:"schedule,omitempty"`
	Reminder duration.Duration `yaml:"reminder,omitempty"`

	PostBackupActions []PostBackupAction `yaml:"post-backup-actions,omitempty"`

	EnvFile         string `yaml:"env-file,omitempty"`
	RequireWritable bool   `yaml:"require-writable,omitempty"`

	LastBackup *time.Time `yaml:"last-backup,omitempty"`
}

// RequiredPaths returns the mount points the job depends on, in
// configuration order and without duplicates.
func (j *Job) RequiredPaths() []string {
	paths := make([]string, 0, len(j.MountPaths)+1)
	seen := make(map[string]struct{}, len(j.MountPaths)+1)
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}
	for _, p := range j.MountPaths {
		add(p)
	}
	add(j.BackupPath)
	return paths
}

// HasReminder reports whether a reminder duration is configured.
func (j *Job) HasReminder() bool {
	return j.Reminder > 0
}

// Action returns the post-backup action with the given label.
func (j *Job) Action(label string) (PostBackupAction, bool) {
	for _, a := range j.PostBackupActions {
		if a.Label == label {
			return a, true
		}
	}
	return PostBackupAction{}, false
}

func (j *Job) validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidJob)
	}
	if strings.TrimSpace(j.BackupScript) == "" {
		return fmt.Errorf("%w: %s: backup-script is empty", ErrInvalidJob, j.Name)
	}
	if j.Interval < 0 || j.Reminder < 0 {
		return fmt.Errorf("%w: %s: durations must not be negative", ErrInvalidJob, j.Name)
	}
	if j.Schedule != "" {
		if j.Interval != 0 {
			return fmt.Errorf("%w: %s: interval and schedule are mutually exclusive", ErrInvalidJob, j.Name)
		}
		// gronx also accepts a leading seconds field
		if len(strings.Fields(j.Schedule)) != 5 || !gronx.IsValid(j.Schedule) {
			return fmt.Errorf("%w: %s: invalid schedule %q", ErrInvalidJob, j.Name, j.Schedule)
		}
	}
	labels := make(map[string]struct{}, len(j.PostBackupActions))
	for _, a := range j.PostBackupActions {
		if a.Label == "" || strings.TrimSpace(a.Script) == "" {
			return fmt.Errorf("%w: %s: post-backup action needs label and script", ErrInvalidJob, j.Name)
		}
		if _, ok := labels[a.Label]; ok {
			return fmt.Errorf("%w: %s: duplicate post-backup action %q", ErrInvalidJob, j.Name, a.Label)
		}
		labels[a.Label] = struct{}{}
	}
	return nil
}

// Settings is the content of the settings file. Values handed out by a
// Store are shared and must not be mutated; use Clone.
type Settings struct {
	IconName  string `yaml:"icon-name"`
	Title     string `yaml:"title"`
	Autostart bool   `yaml:"autostart"`
	Jobs      []Job  `yaml:"scripts"`
}

// Default returns the settings written when no settings file exists.
func Default() *Settings {
	return &Settings{
		IconName: "backup",
		Title:    "Backup",
		Jobs:     []Job{},
	}
}

// Job returns the job with the given name.
func (s *Settings) Job(name string) (*Job, bool) {
	for i := range s.Jobs {
		if s.Jobs[i].Name == name {
			return &s.Jobs[i], true
		}
	}
	return nil, false
}

// JobNames lists the configured job names in order.
func (s *Settings) JobNames() []string {
	names := make([]string, len(s.Jobs))
	for i := range s.Jobs {
		names[i] = s.Jobs[i].Name
	}
	return names
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Jobs = make([]Job, len(s.Jobs))
	for i, j := range s.Jobs {
		j.MountPaths = append([]string(nil), j.MountPaths...)
		j.PostBackupActions = append([]PostBackupAction(nil), j.PostBackupActions...)
		if j.LastBackup != nil {
			t := *j.LastBackup
			j.LastBackup = &t
		}
		c.Jobs[i] = j
	}
	return &c
}

// WithLastBackup returns a copy of s in which the named job's last backup is
// set to at. The second result is false when no such job exists.
func (s *Settings) WithLastBackup(name string, at time.Time) (*Settings, bool) {
	c := s.Clone()
	j, ok := c.Job(name)
	if !ok {
		return c, false
	}
	j.LastBackup = &at
	return c, true
}

// Validate checks job names for uniqueness and each job for consistency.
func (s *Settings) Validate() error {
	names := make(map[string]struct{}, len(s.Jobs))
	for i := range s.Jobs {
		j := &s.Jobs[i]
		if err := j.validate(); err != nil {
			return err
		}
		if _, ok := names[j.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateJob, j.Name)
		}
		names[j.Name] = struct{}{}
	}
	return nil
}

// Parse decodes and validates a settings document. Missing top level keys
// keep their defaults.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if s.Jobs == nil {
		s.Jobs = []Job{}
	}
	for i := range s.Jobs {
		if s.Jobs[i].LastBackup != nil {
			t := s.Jobs[i].LastBackup.UTC()
			s.Jobs[i].LastBackup = &t
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes s as a settings document.
func (s *Settings) Marshal() ([]byte, error) {
	var b strings.Builder
	b.WriteString(fileHeader)
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}
