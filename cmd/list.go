package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dfaust/backup-monitor/cmd/common"
	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/urfave/cli"
)

func list(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	l, err := client.List(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "list", "get_list", err)
		return nil
	}
	printJobs(os.Stdout, l.Jobs)
	return nil
}

func printJobs(w io.Writer, jobs []sharedCommon.JobInfo) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No backup jobs configured")
		return
	}
	txt := "Here are your backup jobs:"
	txt += "\n\n|Num|       Name       |     Every    |   Reminder   |   Mounts   |"
	txt += "\n|---|------------------|--------------|--------------|------------|"
	for i, j := range jobs {
		every := j.Interval
		if j.Schedule != "" {
			every = j.Schedule
		}
		txt += fmt.Sprintf("\n|%s|%s|%s|%s|%s|",
			common.Beaut(fmt.Sprint(i+1), 3),
			common.Beaut(j.Name, 18),
			common.Beaut(orDash(every), 14),
			common.Beaut(orDash(j.Reminder), 14),
			common.Beaut(orDash(strings.Join(j.MountPaths, ",")), 12),
		)
	}
	fmt.Fprintln(w, txt)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
