package bmcli

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/dfaust/backup-monitor/common"
)

// CodeUnknownJob is the error code the daemon uses for unknown job names.
const CodeUnknownJob = jrpc2.Code(-32001)

// IsUnknownJob reports whether err is the daemon rejecting an unknown job.
func IsUnknownJob(err error) bool {
	var e *jrpc2.Error
	return errors.As(err, &e) && e.Code == CodeUnknownJob
}

func (c *Client) Version(ctx context.Context) (*common.VersionResponse, error) {
	return invoke[common.VersionResponse](ctx, c, common.MethodVersion, nil)
}

// Run queues a manual run of job.
func (c *Client) Run(ctx context.Context, job string) (*common.RunResponse, error) {
	return invoke[common.RunResponse](ctx, c, common.MethodJobRun, &common.RunParams{Job: job})
}

func (c *Client) List(ctx context.Context) (*common.ListResponse, error) {
	return invoke[common.ListResponse](ctx, c, common.MethodJobList, nil)
}

func (c *Client) Status(ctx context.Context) (*common.StatusResponse, error) {
	return invoke[common.StatusResponse](ctx, c, common.MethodStatus, nil)
}

// Reload asks the daemon to re-read its settings file.
func (c *Client) Reload(ctx context.Context) error {
	_, err := invoke[common.EmptyResponse](ctx, c, common.MethodSettingsReload, nil)
	return err
}

// History lists recorded runs, newest first. An empty job lists all jobs and
// a zero limit uses the daemon's default.
func (c *Client) History(ctx context.Context, job string, limit int) (*common.HistoryResponse, error) {
	return invoke[common.HistoryResponse](ctx, c, common.MethodHistoryList, &common.HistoryParams{Job: job, Limit: limit})
}

// WaitForRun polls the daemon until it processed the manual run with the
// given ticket, as returned by Run, and returns the job's status at that
// point.
func (c *Client) WaitForRun(ctx context.Context, job string, ticket uint64, poll time.Duration) (*common.JobStatus, error) {
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		st, err := c.Status(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		for i := range st.Jobs {
			if st.Jobs[i].Name == job && st.Jobs[i].ManualRuns >= ticket {
				return &st.Jobs[i], nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
