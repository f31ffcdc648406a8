package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/server"
	"github.com/nexus-app/nexus/internal/svc"
)

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "nexus",
		Short: "Nexus - chat with your machines",
		Long: `Nexus lets a language model answer questions about your machines by
running shell commands on them over ssh.

Just type 'nexus' to start the local server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cfgFile != "" {
				loaded, err := loadConfigFile(cfgFile)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
					os.Exit(1)
				}
				ServerConfig = loaded
				logging.SetLevel(loaded.LogLevel)
			}
			if logLevel != "" {
				logging.SetLevel(logLevel)
			} else if verbose {
				logging.SetLevel("debug")
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			runServe(false)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: platform data directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(ChatCmd())
	rootCmd.AddCommand(ExecCmd())
	rootCmd.AddCommand(MachinesCmd())
	rootCmd.AddCommand(ModelsCmd())
	rootCmd.AddCommand(KeyCmd())
	rootCmd.AddCommand(VersionCmd())

	return rootCmd
}

// ServeCmd starts the HTTP/websocket server
func ServeCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the local server",
		Long:  `Start the Nexus HTTP and websocket server on 127.0.0.1 with the machine status monitor.`,
		Run: func(cmd *cobra.Command, args []string) {
			runServe(quiet)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress request logging")
	return cmd
}

// runServe starts the server and blocks until interrupted
func runServe(quiet bool) {
	c := ServerConfig
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		fmt.Printf("\033[31mError: Failed to initialize data directory: %v\033[0m\n", err)
		os.Exit(1)
	}

	lockFile, err := acquireLock(c.DataDir)
	if err != nil {
		fmt.Printf("\033[31mError: %v\033[0m\n", err)
		fmt.Println("\033[33mNexus is already running. Only one instance allowed per computer.\033[0m")
		os.Exit(1)
	}
	defer releaseLock(lockFile)

	ctx, cancel := signalContext()
	defer cancel()

	svcCtx, err := svc.NewServiceContext(c, svc.Options{Version: Version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError: %v\033[0m\n", err)
		os.Exit(1)
	}
	defer svcCtx.Close()

	if err := server.Run(ctx, svcCtx, server.ServerOptions{Quiet: quiet}); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Printf("\n\033[33mReceived signal: %v - Shutting down...\033[0m\n", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openServiceContext builds a service context for one-shot commands. The
// status monitor is never started here.
func openServiceContext() *svc.ServiceContext {
	svcCtx, err := svc.NewServiceContext(ServerConfig, svc.Options{Version: Version})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return svcCtx
}

// loadConfigFile loads path, falling back to defaults saved to path when it
// does not exist yet.
func loadConfigFile(path string) (*config.Config, error) {
	c, err := config.LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		c = config.DefaultConfig()
		c.Path = path
		return c, nil
	}
	return c, err
}

// VersionCmd prints the build version
func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("nexus", Version)
		},
	}
}
