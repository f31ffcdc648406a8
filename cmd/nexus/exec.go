package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	machinelogic "github.com/nexus-app/nexus/internal/logic/machine"
)

// ExecCmd runs one command on a machine without the model
func ExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <machine> <command...>",
		Short: "Run a command on a remote machine",
		Long: `Run a shell command on an enabled remote machine over ssh and print its
output. The Commander machine cannot be targeted.

Example:
  nexus exec SIGMA df -h`,
		Args: cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			svcCtx := openServiceContext()
			defer svcCtx.Close()

			ctx, cancel := signalContext()
			defer cancel()

			res, err := machinelogic.Execute(ctx, svcCtx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
				os.Exit(1)
			}
			if res.Stdout != "" {
				fmt.Print(res.Stdout)
				if !strings.HasSuffix(res.Stdout, "\n") {
					fmt.Println()
				}
			}
			if res.Stderr != "" {
				fmt.Fprintf(os.Stderr, "\033[90m%s\033[0m\n", strings.TrimRight(res.Stderr, "\n"))
			}
			if res.TimedOut {
				fmt.Fprintln(os.Stderr, "\033[31mcommand timed out\033[0m")
			}
			if !res.Success {
				os.Exit(max(res.ExitCode, 1))
			}
		},
	}
}
