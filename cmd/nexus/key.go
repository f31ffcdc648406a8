package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nexus-app/nexus/internal/keyring"
)

// KeyCmd manages the API key stored in the OS keychain
func KeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the stored API key",
		Long: `Store the Anthropic API key in the OS keychain. ANTHROPIC_API_KEY in the
environment (or a .env file) takes precedence over the stored key.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set [key]",
		Short: "Store the API key",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if !keyring.Available() {
				fmt.Fprintln(os.Stderr, "\033[31mError: OS keychain is not available; set ANTHROPIC_API_KEY instead\033[0m")
				os.Exit(1)
			}
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Print("API key: ")
				line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				fmt.Fprintln(os.Stderr, "\033[31mError: empty key\033[0m")
				os.Exit(1)
			}
			if err := keyring.Set(key); err != nil {
				fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
				os.Exit(1)
			}
			fmt.Println("API key stored.")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the stored API key",
		Run: func(cmd *cobra.Command, args []string) {
			if err := keyring.Delete(); err != nil {
				fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
				os.Exit(1)
			}
			fmt.Println("API key removed.")
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a key is configured",
		Run: func(cmd *cobra.Command, args []string) {
			switch {
			case strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")) != "":
				fmt.Println("Using ANTHROPIC_API_KEY from the environment.")
			default:
				if k, err := keyring.Get(); err == nil && k != "" {
					fmt.Println("Using the key stored in the OS keychain.")
				} else {
					fmt.Println("No API key configured.")
				}
			}
		},
	})

	return cmd
}
