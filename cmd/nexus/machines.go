package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// MachinesCmd probes and lists configured machines
func MachinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "machines",
		Short: "Show machine status",
		Run: func(cmd *cobra.Command, args []string) {
			svcCtx := openServiceContext()
			defer svcCtx.Close()

			ctx, cancel := signalContext()
			defer cancel()

			statuses := svcCtx.Monitor.Refresh(ctx)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tROLE\tHOST\tENABLED\tSTATUS")
			for _, s := range statuses {
				state := "\033[31moffline\033[0m"
				switch {
				case s.Online && s.LatencyMS > 0:
					state = fmt.Sprintf("\033[32monline\033[0m (%dms)", s.LatencyMS)
				case s.Online:
					state = "\033[32monline\033[0m"
				case s.Error != "" && verbose:
					state += " " + s.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n", s.Name, s.Role, s.Host, s.Enabled, state)
			}
			w.Flush()
		},
	}
}
