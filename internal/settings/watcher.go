package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor or an atomic rename
// produces into one notification.
const watchDebounce = 200 * time.Millisecond

// Watch calls onChange whenever the file at path is written, created or
// replaced. The parent directory is watched so renames into place are seen.
// It blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(), l logger.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&relevant == 0 {
				continue
			}
			l.Debug("settings file event: %s", ev.Op)
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warning("settings watcher: %v", err)
		}
	}
}
