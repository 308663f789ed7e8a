package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dfaust/backup-monitor/cmd/common"
	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli"
)

const nameWidth = 16

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
)

func status(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	st, err := client.Status(rctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "status", "get_status", err)
		return nil
	}
	printStatus(os.Stdout, st, time.Now())
	return nil
}

func printStatus(w io.Writer, st *sharedCommon.StatusResponse, now time.Time) {
	title := st.Title
	if st.NeedsAttention {
		title += " " + warnColor.Sprint("(backup out of date)")
	}
	fmt.Fprintln(w, title)
	if len(st.Jobs) == 0 {
		fmt.Fprintln(w, "No backup jobs configured")
		return
	}
	fmt.Fprintln(w)
	for _, j := range st.Jobs {
		fmt.Fprintf(w, "%-*s %s\n", nameWidth, truncate(j.Name, nameWidth), stateText(j))
		fmt.Fprintf(w, "%-*s last: %s, next: %s\n", nameWidth, "",
			relative(j.LastBackup, now, "never"),
			relative(j.NextBackup, now, "not scheduled"))
	}
}

func stateText(j sharedCommon.JobStatus) string {
	switch j.State {
	case "waiting-for-time":
		return okColor.Sprint("ok")
	case "waiting-for-paths":
		return warnColor.Sprintf("waiting for %s", strings.Join(j.Missing, ", "))
	case "running":
		return okColor.Sprint("running")
	case "failed":
		return errColor.Sprintf("failed: %s", j.Message)
	}
	return j.State
}

func relative(t *time.Time, now time.Time, none string) string {
	if t == nil {
		return dimColor.Sprint(none)
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return common.Beaut(s, n)
}
