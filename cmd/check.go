package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/internal/payload"
	"github.com/dfaust/backup-monitor/internal/settings"
	"github.com/spf13/afero"
	"github.com/urfave/cli"
)

func check(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	path, err := settingsPath(ctx)
	if err != nil {
		return err
	}
	return checkSettings(afero.NewOsFs(), path, os.Stdout)
}

func settingsPath(ctx *cli.Context) (string, error) {
	if dir := ctx.GlobalString("config-dir"); dir != "" {
		return filepath.Join(dir, sharedCommon.SettingsFileName), nil
	}
	return sharedCommon.SettingsPath()
}

// checkSettings parses the settings file at path and prints a summary of its
// jobs. It never writes the file.
func checkSettings(fs afero.Fs, path string, w io.Writer) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	s, err := settings.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(w, "%s: ok, %d job(s)\n", path, len(s.Jobs))
	for i := range s.Jobs {
		j := &s.Jobs[i]
		fmt.Fprintf(w, "  %s: %s, %s script", j.Name, scheduleText(j), payload.KindOf(j.BackupScript))
		if paths := j.RequiredPaths(); len(paths) > 0 {
			fmt.Fprintf(w, ", %d mount path(s)", len(paths))
		}
		if j.EnvFile != "" {
			if ok, _ := afero.Exists(fs, j.EnvFile); !ok {
				fmt.Fprintf(w, ", %s", warnColor.Sprintf("env file %s missing", j.EnvFile))
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}

func scheduleText(j *settings.Job) string {
	switch {
	case j.Schedule != "":
		return "cron " + j.Schedule
	case j.Interval > 0:
		return "every " + j.Interval.String()
	}
	return "manual only"
}
