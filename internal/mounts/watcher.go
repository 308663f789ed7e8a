package mounts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"golang.org/x/sys/unix"
)

// DefaultTable is the mount table of the daemon's mount namespace.
const DefaultTable = "/proc/self/mounts"

// pollCap bounds a single poll so cancellation is noticed promptly.
const pollCap = time.Second

// Watcher reports changes of a mount table file. The kernel flags the file
// with POLLPRI|POLLERR whenever a mount is added or removed.
type Watcher struct {
	path string
	log  logger.Logger
	poll func(fds []unix.PollFd, timeout int) (int, error)
}

// NewWatcher returns a watcher for the mount table at path.
func NewWatcher(path string, l logger.Logger) *Watcher {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Watcher{path: path, log: l, poll: unix.Poll}
}

// Snapshot returns the current content of the mount table.
func (w *Watcher) Snapshot() (string, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", fmt.Errorf("read mount table: %w", err)
	}
	return string(data), nil
}

// Watch blocks until ctx is done, calling onChange with a fresh snapshot of
// the mount table after every change. Read failures are logged and skipped.
func (w *Watcher) Watch(ctx context.Context, onChange func(snapshot string)) error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("open mount table: %w", err)
	}
	defer f.Close()

	fds := []unix.PollFd{{Fd: int32(f.Fd()), Events: unix.POLLPRI}}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fds[0].Revents = 0
		n, err := w.poll(fds, int(pollCap/time.Millisecond))
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return fmt.Errorf("poll mount table: %w", err)
		}
		if n == 0 || fds[0].Revents&(unix.POLLPRI|unix.POLLERR) == 0 {
			continue
		}

		w.log.Debug("mounts were updated")
		snapshot, err := readFrom(f)
		if err != nil {
			w.log.Warning("re-reading mount table: %v", err)
			continue
		}
		onChange(snapshot)
	}
}

func readFrom(f *os.File) (string, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Writable reports whether path is an existing directory the daemon may
// write to. Read-only mounts report false.
func Writable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.IsDir() {
		return false
	}
	return unix.Access(path, unix.W_OK) == nil
}
