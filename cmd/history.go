package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dfaust/backup-monitor/cmd/common"
	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli"
)

var (
	historyLimit int
	showOutput   bool

	historyFlags = []cli.Flag{
		cli.IntFlag{
			Name:        "limit, n",
			Usage:       "number of runs to show (default: 50)",
			Destination: &historyLimit,
		},
		cli.BoolFlag{
			Name:        "output, o",
			Usage:       "print the captured output of each run",
			Destination: &showOutput,
		},
	}
)

func historyCmd(ctx *cli.Context) error {
	job := ctx.Args().First()
	if job == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	h, err := client.History(rctx, job, historyLimit)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "list_runs", err)
		return nil
	}
	printHistory(os.Stdout, h.Entries, time.Now(), showOutput)
	return nil
}

func printHistory(w io.Writer, entries []sharedCommon.HistoryEntry, now time.Time, output bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	for _, e := range entries {
		took := e.Finished.Sub(e.Started).Round(time.Second)
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			common.Beaut(humanize.RelTime(e.Started, now, "ago", "from now"), 16),
			common.Beaut(e.Job, 16),
			common.Beaut(e.Kind, 8),
			outcomeText(e),
			took,
		)
		if e.Message != "" {
			fmt.Fprintf(w, "    %s\n", e.Message)
		}
		if output && e.Output != "" {
			fmt.Fprintf(w, "    --- output ---\n%s\n", e.Output)
		}
	}
}

func outcomeText(e sharedCommon.HistoryEntry) string {
	cell := common.Beaut(e.Outcome, 10)
	if e.Outcome == "success" {
		return okColor.Sprint(cell)
	}
	return errColor.Sprint(cell)
}
