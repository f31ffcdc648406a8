// Package keyring stores the upstream API key in the OS keychain.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	zkr "github.com/zalando/go-keyring"
)

const (
	serviceName = "nexus"
	accountName = "anthropic-api-key"
)

// ErrNotFound is returned when no key has been stored.
var ErrNotFound = errors.New("no API key in keychain")

// Get retrieves the API key from the OS keychain.
func Get() (string, error) {
	if disabled() {
		return "", ErrNotFound
	}
	key, err := zkr.Get(serviceName, accountName)
	if errors.Is(err, zkr.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain get: %w", err)
	}
	return strings.TrimSpace(key), nil
}

// Set stores the API key in the OS keychain.
func Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key must not be empty")
	}
	return zkr.Set(serviceName, accountName, key)
}

// Delete removes the API key from the OS keychain.
func Delete() error {
	err := zkr.Delete(serviceName, accountName)
	if errors.Is(err, zkr.ErrNotFound) {
		return nil
	}
	return err
}

// Available returns true if the OS keychain is functional.
// Returns false if NEXUS_KEYRING_DISABLED=1 is set (headless/CI/Docker).
// Otherwise probes the keychain with a test write/read/delete cycle.
func Available() bool {
	if disabled() {
		return false
	}
	testService := "nexus-keyring-probe"
	testAccount := "probe"
	if err := zkr.Set(testService, testAccount, "ok"); err != nil {
		return false
	}
	_ = zkr.Delete(testService, testAccount)
	return true
}

func disabled() bool {
	return os.Getenv("NEXUS_KEYRING_DISABLED") == "1"
}
