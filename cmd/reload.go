package cmd

import (
	"fmt"

	"github.com/dfaust/backup-monitor/cmd/common"
	"github.com/urfave/cli"
)

func reload(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "reload", "new_client", err)
		return nil
	}
	defer client.Close()
	rctx, cancel := rpcContext()
	defer cancel()
	if err := client.Reload(rctx); err != nil {
		common.PrintRuntimeErr(ctx, "reload", "reload_settings", err)
		return nil
	}
	fmt.Println("Settings reload requested")
	return nil
}
