package mounts

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dfaust/backup-monitor/pkg/logger"
	"golang.org/x/sys/unix"
)

const table = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/nvme0n1p2 / ext4 rw,relatime 0 0
/dev/sdb1 /mnt/backup ext4 rw,relatime 0 0
/dev/sdc1 /run/media/user/My\040Passport vfat rw,relatime 0 0
garbage
`

func TestParse(t *testing.T) {
	s := Parse(table)
	for _, p := range []string{"/sys", "/proc", "/", "/mnt/backup", "/run/media/user/My Passport"} {
		if !s.Has(p) {
			t.Errorf("expected %q to be mounted", p)
		}
	}
	if len(s) != 5 {
		t.Errorf("expected 5 mount points, got %d: %v", len(s), s.Sorted())
	}
	if s.Has("garbage") {
		t.Error("malformed line must be ignored")
	}
}

func TestUnescape(t *testing.T) {
	tests := map[string]string{
		`/plain`:              "/plain",
		`/a\040b`:             "/a b",
		`/tab\011x`:           "/tab\tx",
		`/back\134slash`:      `/back\slash`,
		`/short\04`:           `/short\04`,
		`/not\999octal`:       `/not\999octal`,
		`/two\040spaces\040x`: "/two spaces x",
	}
	for in, want := range tests {
		if got := unescape(in); got != want {
			t.Errorf("unescape(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSet_DiffAndMissing(t *testing.T) {
	before := NewSet("/", "/mnt/a", "/mnt/b")
	after := NewSet("/", "/mnt/b", "/mnt/c")

	added, removed := before.Diff(after)
	if len(added) != 1 || added[0] != "/mnt/c" {
		t.Errorf("unexpected added: %v", added)
	}
	if len(removed) != 1 || removed[0] != "/mnt/a" {
		t.Errorf("unexpected removed: %v", removed)
	}

	missing := after.Missing([]string{"/mnt/a", "/mnt/b", "/mnt/d"})
	if len(missing) != 2 || missing[0] != "/mnt/a" || missing[1] != "/mnt/d" {
		t.Errorf("unexpected missing: %v", missing)
	}
	if m := after.Missing(nil); m != nil {
		t.Errorf("expected nil for no required paths, got %v", m)
	}
}

func TestWatcher_SnapshotAndChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(path, []byte(table), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(path, logger.NewNopLogger())

	snap, err := w.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !Parse(snap).Has("/mnt/backup") {
		t.Fatal("expected snapshot to contain /mnt/backup")
	}

	var once sync.Once
	w.poll = func(fds []unix.PollFd, timeout int) (int, error) {
		fired := false
		once.Do(func() {
			fds[0].Revents = unix.POLLPRI | unix.POLLERR
			fired = true
		})
		if fired {
			return 1, nil
		}
		time.Sleep(5 * time.Millisecond)
		return 0, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(s string) { got <- s })
	}()

	select {
	case s := <-got:
		if !Parse(s).Has("/run/media/user/My Passport") {
			t.Errorf("unexpected snapshot: %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected change callback")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatcher_OpenError(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), nil)
	if err := w.Watch(context.Background(), func(string) {}); err == nil {
		t.Fatal("expected error for missing mount table")
	}
}

func TestWritable(t *testing.T) {
	dir := t.TempDir()
	if !Writable(dir) {
		t.Errorf("expected %s to be writable", dir)
	}
	if Writable(filepath.Join(dir, "missing")) {
		t.Error("missing path must not be writable")
	}
	file := filepath.Join(dir, "file")
	_ = os.WriteFile(file, nil, 0o644)
	if Writable(file) {
		t.Error("regular file must not count as a writable mount")
	}
}
