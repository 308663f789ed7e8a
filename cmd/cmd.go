package cmd

import (
	"fmt"
	"runtime"

	"github.com/dfaust/backup-monitor/cmd/common"
	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// build is the running binary's build information.
var build BuildArgs

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "socket",
		Usage:  "path of the daemon control socket",
		EnvVar: sharedCommon.SocketPathEnv,
	},
	cli.StringFlag{
		Name:   "config-dir",
		Usage:  "directory holding backup-monitor.yaml",
		EnvVar: sharedCommon.ConfigDirEnv,
	},
	cli.BoolFlag{
		Name:   "debug",
		Usage:  "enable debug logging",
		EnvVar: sharedCommon.DebugEnv,
	},
}

func Execute(args []string, bArgs BuildArgs) error {
	build = bArgs
	app := cli.App{
		Name:                  "backup-monitor",
		HelpName:              "backup-monitor",
		Usage:                 "Runs backup scripts on a schedule and reminds you when they fall behind.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "backup-monitor [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "daemon",
				Usage:              "run the scheduler (default command)",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             daemonCmd,
				Flags:              daemonFlags,
			},
			{
				Name:                   "run",
				Aliases:                []string{"r"},
				Usage:                  "run a job now",
				ArgsUsage:              "<job>",
				Description:            RunDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 run,
				Flags:                  runFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "status",
				Aliases:            []string{"s"},
				Usage:              "show job states",
				Description:        StatusDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             status,
			},
			{
				Name:               "list",
				Aliases:            []string{"l"},
				Usage:              "list configured jobs",
				Description:        ListDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             list,
			},
			{
				Name:                   "history",
				Usage:                  "show recorded runs",
				ArgsUsage:              "[job]",
				Description:            HistoryDescription,
				CustomHelpTemplate:     CMD_HELP_TEMPL,
				OnUsageError:           common.UsageErrorCallback,
				Action:                 historyCmd,
				Flags:                  historyFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "reload",
				Usage:              "reload the settings file",
				Description:        ReloadDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             reload,
			},
			{
				Name:               "check",
				Usage:              "validate the settings file",
				Description:        CheckDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             check,
			},
			{
				Name:               "watch",
				Usage:              "print tray updates",
				Description:        WatchDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             watch,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of backup-monitor",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      daemonCmd,
		HideHelp:    true,
		HideVersion: true,
	}
	app.Flags = append(app.Flags, daemonFlags...)
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
