package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	cli "github.com/nexus-app/nexus/cmd/nexus"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/defaults"
	"github.com/nexus-app/nexus/internal/logging"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// First run: seed the data directory with the default config.yaml
	if _, err := defaults.EnsureDataDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize data directory: %v\n", err)
		os.Exit(1)
	}

	c, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logging.SetLevel(c.LogLevel)

	if err := cli.SetupRootCmd(c).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
