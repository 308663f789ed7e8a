package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/dfaust/backup-monitor/cmd/common"
	"github.com/dfaust/backup-monitor/internal/mounts"
	"github.com/dfaust/backup-monitor/pkg/bmcli"
	"github.com/dfaust/backup-monitor/pkg/logger"
	"github.com/urfave/cli"
)

var daemonFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "log-file",
		Usage: "also write the log to this file",
	},
	cli.StringFlag{
		Name:  "mount-table",
		Usage: "mount table to watch",
		Value: mounts.DefaultTable,
	},
	cli.BoolFlag{
		Name:  "no-history",
		Usage: "do not record runs in the history database",
	},
	cli.BoolFlag{
		Name:  "no-notifications",
		Usage: "do not connect to the session bus for desktop notifications",
	},
}

func daemonCmd(ctx *cli.Context) error {
	if ctx.Args().First() == "help" && ctx.Command.Name != "" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if ctx.Command.Name == "" && ctx.NArg() > 0 {
		return common.PrintErrWithHelp(ctx, fmt.Errorf("unknown command %q", ctx.Args().First()))
	}

	opts, err := defaultDaemonOptions(ctx.GlobalString("config-dir"), socketPath(ctx))
	if err != nil {
		return err
	}
	if table := stringFlag(ctx, "mount-table"); table != "" {
		opts.MountTable = table
	}
	if boolFlag(ctx, "no-history") {
		opts.HistoryPath = ""
	}
	opts.NoDBus = boolFlag(ctx, "no-notifications")

	if client, err := bmcli.NewClient(opts.SocketPath); err == nil {
		client.Close()
		return fmt.Errorf("daemon already running on %s", opts.SocketPath)
	}

	l, err := newDaemonLogger(stringFlag(ctx, "log-file"), ctx.GlobalBool("debug"))
	if err != nil {
		return err
	}
	defer l.Close()

	comps, err := initDaemonComponents(opts, l)
	if err != nil {
		return err
	}
	defer comps.Close()

	sctx, cancel := setupShutdownHandler()
	defer cancel()
	l.Info("backup-monitor %s listening on %s", build.Version, opts.SocketPath)
	return comps.Runner.Start(sctx)
}

// newDaemonLogger logs to stderr and, when path is set, to a log file.
func newDaemonLogger(path string, debug bool) (logger.Logger, error) {
	console := logger.NewConsoleLogger(os.Stderr, debug)
	if path == "" {
		return console, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	file := logger.NewStandardLogger(log.New(f, "", log.LstdFlags), debug).WithCloser(f.Close)
	return logger.NewMultiLogger(console, file), nil
}
