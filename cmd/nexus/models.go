package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexus-app/nexus/internal/agent/ai"
)

// ModelsCmd lists the selectable models
func ModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List supported models",
		Run: func(cmd *cobra.Command, args []string) {
			current := ServerConfig.Model
			for _, m := range ai.Models() {
				marker := " "
				if m.ID == current {
					marker = "*"
				}
				fmt.Printf("%s %-28s %-18s $%g/$%g per MTok\n", marker, m.ID, m.DisplayName, m.InputPerMTok, m.OutputPerMTok)
			}
		},
	}
}
