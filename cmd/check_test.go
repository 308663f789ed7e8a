package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/spf13/afero"
)

const validSettings = `icon-name: backup
title: Backup
scripts:
  - name: home
    backup-script: /usr/local/bin/backup-home
    mount-paths: [/mnt/backup]
    interval: 1day
    reminder: 7days
    env-file: /etc/backup/home.env
  - name: mail
    backup-script: |
      #!/bin/bash
      mbsync -a
    schedule: "0 3 * * *"
`

func TestCheckSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/cfg/backup-monitor.yaml", []byte(validSettings), 0o644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := checkSettings(fs, "/cfg/backup-monitor.yaml", &buf); err != nil {
		t.Fatalf("checkSettings: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"/cfg/backup-monitor.yaml: ok, 2 job(s)",
		"home: every 1day, shell script, 1 mount path(s), env file /etc/backup/home.env missing",
		"mail: cron 0 3 * * *, interpreted script",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckSettings_DuplicateJob(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := "scripts:\n  - name: a\n    backup-script: x\n  - name: a\n    backup-script: y\n"
	if err := afero.WriteFile(fs, "/s.yaml", []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	err := checkSettings(fs, "/s.yaml", &bytes.Buffer{})
	if !errors.Is(err, settings.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestCheckSettings_Missing(t *testing.T) {
	err := checkSettings(afero.NewMemMapFs(), "/nope.yaml", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "read settings") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestScheduleText(t *testing.T) {
	if got := scheduleText(&settings.Job{}); got != "manual only" {
		t.Errorf("got %q", got)
	}
}
