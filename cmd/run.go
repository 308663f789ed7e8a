package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dfaust/backup-monitor/cmd/common"
	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/pkg/bmcli"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
)

var (
	waitForRun  bool
	waitTimeout = DEF_WAIT_TIMEOUT

	runFlags = []cli.Flag{
		cli.BoolFlag{
			Name:        "wait, w",
			Usage:       "block until the run finished (default: false)",
			Destination: &waitForRun,
		},
		cli.DurationFlag{
			Name:        "timeout",
			Usage:       "give up waiting after this long",
			Value:       DEF_WAIT_TIMEOUT,
			Destination: &waitTimeout,
		},
	}
)

// ErrRunFailed is returned by `run --wait` when the job did not succeed.
var ErrRunFailed = errors.New("run failed")

func run(ctx *cli.Context) error {
	job := ctx.Args().First()
	if job == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if job == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("missing job name"))
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "new_client", err)
		return nil
	}
	defer client.Close()

	rctx, cancel := rpcContext()
	res, err := client.Run(rctx, job)
	cancel()
	if bmcli.IsUnknownJob(err) {
		return fmt.Errorf("unknown job %q", job)
	}
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "queue_run", err)
		return nil
	}
	if !waitForRun {
		fmt.Printf("Queued run of %s\n", job)
		return nil
	}

	wctx, wcancel := context.WithTimeout(context.Background(), waitTimeout)
	defer wcancel()
	p := mpb.New(mpb.WithWidth(32))
	bar := common.NewSpinner(p, job)
	st, err := client.WaitForRun(wctx, job, res.Ticket, DEF_POLL_INTERVAL)
	if err != nil {
		bar.Abort(true)
		p.Wait()
		return fmt.Errorf("waiting for %s: %w", job, err)
	}
	bar.SetTotal(-1, true)
	p.Wait()
	return runOutcome(os.Stdout, st)
}

// runOutcome turns the status seen right after a run into the command's
// result.
func runOutcome(w io.Writer, st *sharedCommon.JobStatus) error {
	switch st.State {
	case "failed":
		return fmt.Errorf("%w: %s", ErrRunFailed, st.Message)
	case "waiting-for-paths":
		return fmt.Errorf("%w: waiting for %s", ErrRunFailed, strings.Join(st.Missing, ", "))
	}
	fmt.Fprintf(w, "%s finished\n", st.Name)
	return nil
}
