// Package common provides shared types and constants used by the
// backup-monitor daemon and its command line client.
package common

// Environment variable names for configuration.
const (
	// SocketPathEnv is the environment variable for a custom socket path.
	SocketPathEnv = "BACKUP_MONITOR_SOCKET_PATH"

	// ConfigDirEnv overrides the directory holding backup-monitor.yaml.
	ConfigDirEnv = "BACKUP_MONITOR_CONFIG_DIR"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "BACKUP_MONITOR_DEBUG"
)
