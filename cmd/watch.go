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

func watch(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	client, err := newClient(ctx)
	if err != nil {
		common.PrintRuntimeErr(ctx, "watch", "new_client", err)
		return nil
	}
	defer client.Close()
	sctx, cancel := setupShutdownHandler()
	defer cancel()
	return client.Watch(sctx, func(st sharedCommon.TrayState) {
		printTrayState(os.Stdout, st)
	})
}

func printTrayState(w io.Writer, st sharedCommon.TrayState) {
	names := make([]string, 0, len(st.Jobs))
	for _, j := range st.Jobs {
		names = append(names, j.Name)
	}
	fmt.Fprintf(w, "[%s] %s (%s)\n", st.Status, st.Title, strings.Join(names, ", "))
	for _, line := range strings.Split(st.Tooltip, "\n") {
		if line != "" {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
}
