package cmd

import (
	"context"
	"os"

	sharedCommon "github.com/dfaust/backup-monitor/common"
	"github.com/dfaust/backup-monitor/pkg/bmcli"
	"github.com/urfave/cli"
)

func socketPath(ctx *cli.Context) string {
	if p := ctx.GlobalString("socket"); p != "" {
		return p
	}
	return sharedCommon.SocketPath()
}

// stringFlag reads a flag that is accepted both before and after the
// command name.
func stringFlag(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	if ctx.GlobalIsSet(name) {
		return ctx.GlobalString(name)
	}
	return ctx.String(name)
}

func boolFlag(ctx *cli.Context, name string) bool {
	return ctx.Bool(name) || ctx.GlobalBool(name)
}

// newClient connects to the daemon and warns about version mismatches.
func newClient(ctx *cli.Context) (*bmcli.Client, error) {
	client, err := bmcli.NewClient(socketPath(ctx))
	if err != nil {
		return nil, err
	}
	rctx, cancel := rpcContext()
	defer cancel()
	client.CheckVersionMismatch(rctx, build.Version, os.Stderr)
	return client, nil
}

func rpcContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), DEF_RPC_TIMEOUT)
}
