// Package daemon runs the backup monitor: the control loop, its event
// producers and the control socket server.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/dfaust/backup-monitor/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Sentinel errors for the daemon runner.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running daemon.
	ErrAlreadyRunning = errors.New("daemon is already running")

	// ErrNotRunning is returned when Shutdown() is called on a stopped daemon.
	ErrNotRunning = errors.New("daemon is not running")

	// ErrShutdownTimeout is returned when shutdown exceeds the configured timeout.
	ErrShutdownTimeout = errors.New("shutdown timed out")
)

// Config holds the configuration for the daemon runner.
type Config struct {
	// SocketPath is the unix socket the control server listens on.
	SocketPath string

	// SettingsPath is the settings file watched for changes.
	SettingsPath string

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// A zero value means no timeout.
	ShutdownTimeout time.Duration
}

// MountWatcher reports mount table changes.
type MountWatcher interface {
	Watch(ctx context.Context, onChange func(snapshot string)) error
}

// Server serves the control socket until ctx is done.
type Server interface {
	Serve(ctx context.Context, l net.Listener) error
}

// Dependencies holds the external dependencies for the daemon runner.
type Dependencies struct {
	Loop  *Loop
	Queue *Queue

	// Mounts and Server are optional.
	Mounts MountWatcher
	Server Server

	// WatchSettings watches the settings file. If nil, settings.Watch is
	// used; set it to a no-op function to disable watching.
	WatchSettings func(ctx context.Context, path string, onChange func(), l logger.Logger) error

	// ListenerFactory creates network listeners.
	// If nil, a unix socket listener is created.
	ListenerFactory func(network, address string) (net.Listener, error)

	// ShutdownFunc is called during shutdown to clean up resources.
	// If nil, no cleanup function is called.
	ShutdownFunc func() error

	Logger logger.Logger
}

// Runner manages the daemon lifecycle.
type Runner struct {
	config   *Config
	deps     *Dependencies
	log      logger.Logger
	running  bool
	mu       sync.Mutex
	cancel   context.CancelFunc
	listener net.Listener
}

// New creates a new daemon runner.
func New(config *Config, deps *Dependencies) *Runner {
	if config == nil {
		config = &Config{}
	}
	if deps.WatchSettings == nil {
		deps.WatchSettings = settings.Watch
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = listenUnix
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return &Runner{config: config, deps: deps, log: deps.Logger}
}

// listenUnix replaces a stale socket file and restricts the new socket to
// its owner.
func listenUnix(network, address string) (net.Listener, error) {
	if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	l, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(address, 0700)
	return l, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *Config {
	return r.config
}

// Start runs the daemon until the context is canceled or a component fails.
// Returns ErrAlreadyRunning if the daemon is already started. Cancellation
// is a clean stop and returns nil.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, r.cancel = context.WithCancel(ctx)

	if r.deps.Server != nil {
		l, err := r.deps.ListenerFactory("unix", r.config.SocketPath)
		if err != nil {
			r.mu.Unlock()
			r.cancel()
			return fmt.Errorf("listen on %s: %w", r.config.SocketPath, err)
		}
		r.listener = l
	}
	r.running = true
	listener := r.listener
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := r.deps.Loop.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		// unblocks the loop when another component fails
		<-gctx.Done()
		r.deps.Queue.Close()
		return nil
	})
	if r.deps.Mounts != nil {
		g.Go(func() error {
			err := r.deps.Mounts.Watch(gctx, func(snapshot string) {
				r.deps.Queue.Push(MountsChanged{Snapshot: snapshot})
			})
			if err != nil {
				r.log.Error("mount watcher stopped: %v", err)
			}
			return nil
		})
	}
	if r.config.SettingsPath != "" {
		g.Go(func() error {
			err := r.deps.WatchSettings(gctx, r.config.SettingsPath, func() {
				r.deps.Queue.Push(SettingsChanged{})
			}, r.log)
			if err != nil {
				r.log.Error("settings watcher stopped: %v", err)
			}
			return nil
		})
	}
	if listener != nil {
		g.Go(func() error {
			return r.deps.Server.Serve(gctx, listener)
		})
	}

	err := g.Wait()
	r.cleanupOnStop()
	if errors.Is(err, ErrDisconnected) && ctx.Err() != nil {
		return nil
	}
	return err
}

// cleanupOnStop performs cleanup when the daemon stops.
func (r *Runner) cleanupOnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = false
	r.closeListener()
	if r.config.SocketPath != "" {
		_ = os.Remove(r.config.SocketPath)
	}
}

// closeListener closes the listener if it exists.
// Caller must hold the mutex.
func (r *Runner) closeListener() {
	if r.listener != nil {
		_ = r.listener.Close()
		r.listener = nil
	}
}

// Shutdown stops the daemon.
// Returns ErrNotRunning if the daemon is not running.
// Returns ErrShutdownTimeout if the shutdown function exceeds the configured timeout.
func (r *Runner) Shutdown() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.mu.Unlock()

	if err := r.executeShutdownFunc(); err != nil {
		return err
	}
	r.stop()
	return nil
}

func (r *Runner) executeShutdownFunc() error {
	if r.deps.ShutdownFunc == nil {
		return nil
	}
	if r.config.ShutdownTimeout <= 0 {
		if err := r.deps.ShutdownFunc(); err != nil {
			r.log.Warning("shutdown: %v", err)
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- r.deps.ShutdownFunc()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(r.config.ShutdownTimeout):
		r.stop()
		return ErrShutdownTimeout
	}
}

func (r *Runner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning returns true if the daemon is currently running.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
