package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/internal/autostart"
	"github.com/dfaust/backup-monitor/internal/clock"
	"github.com/dfaust/backup-monitor/internal/daemon"
	"github.com/dfaust/backup-monitor/internal/history"
	"github.com/dfaust/backup-monitor/internal/mounts"
	"github.com/dfaust/backup-monitor/internal/notify"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/scheduler"
	"github.com/dfaust/backup-monitor/internal/server"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/internal/tray"
	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/spf13/afero"
)

// DaemonOptions selects the files and optional features of a daemon.
type DaemonOptions struct {
	SettingsPath string
	SocketPath   string
	// HistoryPath is empty when run history is disabled.
	HistoryPath string
	MountTable  string
	// AutostartDir is the XDG config dir holding autostart entries.
	AutostartDir string
	Executable   string
	// NoDBus skips the session bus; notifications are dropped.
	NoDBus bool
}

// DaemonComponents holds all initialized daemon components.
type DaemonComponents struct {
	History  *history.Store
	Notifier notify.Notifier
	Hub      *tray.Hub
	Server   *server.Server
	Runner   *daemon.Runner
	logger   logger.Logger
}

// Close releases all daemon component resources in reverse order of initialization.
func (c *DaemonComponents) Close() {
	if c.logger != nil {
		c.logger.Info("shutting down daemon")
	}
	if c.Server != nil {
		_ = c.Server.Close()
	}
	if closer, ok := c.Notifier.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if c.History != nil {
		_ = c.History.Close()
	}
	if c.logger != nil {
		c.logger.Info("daemon stopped")
	}
}

// initDaemonComponents initializes all daemon components. On error, any
// partially initialized components are closed before returning.
var initDaemonComponents = func(opts DaemonOptions, log logger.Logger) (*DaemonComponents, error) {
	fs := afero.NewOsFs()
	c := &DaemonComponents{logger: log}

	repo := settings.NewFile(fs, opts.SettingsPath, log)
	initial, err := repo.Load()
	if err != nil {
		log.Error("loading settings failed: %v", err)
		return nil, err
	}
	store := settings.NewStore(initial)

	var recorder history.Recorder
	if opts.HistoryPath != "" {
		h, err := history.Open(opts.HistoryPath)
		if err != nil {
			log.Warning("run history disabled: %v", err)
		} else {
			c.History = h
			recorder = h
		}
	}

	c.Notifier = notify.Nop{}
	if !opts.NoDBus {
		n, err := notify.NewDBus(log)
		if err != nil {
			log.Warning("desktop notifications disabled: %v", err)
		} else {
			c.Notifier = n
		}
	}

	c.Hub = tray.NewHub(log)
	mw := mounts.NewWatcher(opts.MountTable, log)
	snapshot, err := mw.Snapshot()
	if err != nil {
		log.Warning("reading mount table failed: %v", err)
	}

	sched := scheduler.New(scheduler.Dependencies{
		Clock:      clock.Real{},
		Settings:   store,
		Repository: repo,
		Runner:     payload.NewRunner(fs, os.TempDir(), log),
		Notifier:   c.Notifier,
		Tray:       c.Hub,
		History:    recorder,
		Logger:     log,
	}, mounts.Parse(snapshot))

	queue := daemon.NewQueue()
	loop := daemon.NewLoop(daemon.LoopDependencies{
		Clock:      clock.Real{},
		Queue:      queue,
		Scheduler:  sched,
		Settings:   store,
		Repository: repo,
		Tray:       c.Hub,
		Notifier:   c.Notifier,
		Autostart:  autostart.NewXDG(fs, opts.AutostartDir, opts.Executable, "daemon"),
		Logger:     log,
	})

	api := &server.API{
		Version: server.VersionInfo{
			Version:   build.Version,
			Commit:    build.Commit,
			BuildType: build.BuildType,
		},
		Events:   queue,
		Settings: store,
		Views:    sched,
	}
	if c.History != nil {
		api.History = c.History
	}
	c.Server = server.New(api, c.Hub, log)

	c.Runner = daemon.New(&daemon.Config{
		SocketPath:      opts.SocketPath,
		SettingsPath:    opts.SettingsPath,
		ShutdownTimeout: DEF_SHUTDOWN,
	}, &daemon.Dependencies{
		Loop:   loop,
		Queue:  queue,
		Mounts: mw,
		Server: c.Server,
		Logger: log,
	})
	return c, nil
}

// defaultDaemonOptions resolves the paths used when no flags override them.
func defaultDaemonOptions(configDir, socket string) (DaemonOptions, error) {
	if configDir == "" {
		dir, err := sharedCommon.ConfigDir()
		if err != nil {
			return DaemonOptions{}, err
		}
		configDir = dir
	}
	xdg, err := os.UserConfigDir()
	if err != nil {
		return DaemonOptions{}, fmt.Errorf("autostart dir: %w", err)
	}
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return DaemonOptions{
		SettingsPath: filepath.Join(configDir, sharedCommon.SettingsFileName),
		SocketPath:   socket,
		HistoryPath:  filepath.Join(configDir, sharedCommon.HistoryFileName),
		MountTable:   mounts.DefaultTable,
		AutostartDir: xdg,
		Executable:   exe,
	}, nil
}
