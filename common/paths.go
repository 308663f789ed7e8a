package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SettingsFileName is the name of the settings file inside the config dir.
	SettingsFileName = "backup-monitor.yaml"

	// HistoryFileName is the name of the run history database.
	HistoryFileName = "backup-monitor-history.db"

	socketFileName = "backup-monitor.sock"
)

// ErrNoConfigDir is returned when no configuration directory can be determined.
var ErrNoConfigDir = errors.New("config dir not found")

// ConfigDir returns the directory holding the settings file. It checks
// ConfigDirEnv first and falls back to os.UserConfigDir.
func ConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "", fmt.Errorf("%w: %v", ErrNoConfigDir, err)
	}
	return dir, nil
}

// SettingsPath returns the full path of the settings file.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// SocketPath returns the unix socket the daemon listens on. SocketPathEnv
// wins, then $XDG_RUNTIME_DIR, then the system temp dir.
func SocketPath() string {
	if path := os.Getenv(SocketPathEnv); path != "" {
		return path
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketFileName)
	}
	return filepath.Join(os.TempDir(), socketFileName)
}
