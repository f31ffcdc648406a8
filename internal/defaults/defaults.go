// Package defaults provides the embedded default configuration.
// Missing files are copied to the platform data directory on startup.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/Nexus/
//	Windows: %AppData%\Nexus\
//	Linux:   ~/.config/nexus/
//
// Override with NEXUS_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dotnexus/*
var defaultFiles embed.FS

// DataDir returns the platform-appropriate data directory.
// Set NEXUS_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("NEXUS_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "nexus"), nil
	}
	return filepath.Join(configDir, "Nexus"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
// and copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := copyDefaults(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// copyDefaults writes every embedded file missing from dir.
func copyDefaults(dir string) error {
	return fs.WalkDir(defaultFiles, "dotnexus", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "dotnexus" {
			return nil
		}

		// embed.FS always uses forward slashes
		relPath := strings.TrimPrefix(path, "dotnexus/")
		destPath := filepath.Join(dir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}
		if _, err := os.Stat(destPath); err == nil {
			return nil
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}
