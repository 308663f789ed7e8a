// Package autostart registers the daemon to start with the desktop session
// through an XDG autostart entry.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/spf13/afero"
)

// AppName is shown by session managers listing autostart entries.
const AppName = "Backup Monitor"

const entryName = "backup-monitor.desktop"

// Manager toggles autostart registration.
type Manager interface {
	IsEnabled() (bool, error)
	Enable() error
	Disable() error
}

// XDG manages $XDG_CONFIG_HOME/autostart/backup-monitor.desktop.
type XDG struct {
	fs   afero.Fs
	path string
	exec []string
}

// NewXDG returns a manager writing its entry below configDir/autostart. The
// entry starts command with args.
func NewXDG(fs afero.Fs, configDir string, command string, args ...string) *XDG {
	return &XDG{
		fs:   fs,
		path: filepath.Join(configDir, "autostart", entryName),
		exec: append([]string{command}, args...),
	}
}

// Path returns the location of the desktop entry.
func (x *XDG) Path() string { return x.path }

// IsEnabled reports whether the desktop entry exists.
func (x *XDG) IsEnabled() (bool, error) {
	return afero.Exists(x.fs, x.path)
}

// Enable writes the desktop entry.
func (x *XDG) Enable() error {
	if err := x.fs.MkdirAll(filepath.Dir(x.path), 0o755); err != nil {
		return fmt.Errorf("create autostart dir: %w", err)
	}
	if err := afero.WriteFile(x.fs, x.path, []byte(x.entry()), 0o644); err != nil {
		return fmt.Errorf("write autostart entry: %w", err)
	}
	return nil
}

// Disable removes the desktop entry. A missing entry is not an error.
func (x *XDG) Disable() error {
	if err := x.fs.Remove(x.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove autostart entry: %w", err)
	}
	return nil
}

func (x *XDG) entry() string {
	quoted := make([]string, len(x.exec))
	for i, arg := range x.exec {
		quoted[i] = quoteExecArg(arg)
	}
	return strings.Join([]string{
		"[Desktop Entry]",
		"Type=Application",
		"Version=1.0",
		"Name=" + AppName,
		"Comment=" + AppName + " startup script",
		"Exec=" + strings.Join(quoted, " "),
		"StartupNotify=false",
		"Terminal=false",
		"",
	}, "\n")
}

// quoteExecArg quotes an Exec key argument as the desktop entry
// specification requires for arguments with reserved characters.
func quoteExecArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\><~|&;$*?#()`") {
		return arg
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", `$`, `\$`)
	return `"` + r.Replace(arg) + `"`
}

// Reconcile enables or disables m so that it matches want.
func Reconcile(m Manager, want bool, l logger.Logger) error {
	enabled, err := m.IsEnabled()
	if err != nil {
		return fmt.Errorf("check autostart: %w", err)
	}
	if enabled == want {
		return nil
	}
	if want {
		l.Info("enabling autostart")
		return m.Enable()
	}
	l.Info("disabling autostart")
	return m.Disable()
}

var _ Manager = (*XDG)(nil)
