package cli

import (
	"github.com/nexus-app/nexus/internal/config"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// ServerConfig holds the loaded configuration (set by main)
var ServerConfig *config.Config

// Version is stamped at build time with -ldflags.
var Version = "dev"
