package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexus-app/nexus/internal/defaults"
	"github.com/nexus-app/nexus/internal/keyring"
	"github.com/nexus-app/nexus/internal/machine"
)

// ErrMissingCredential is returned when no API key can be found.
var ErrMissingCredential = errors.New("ANTHROPIC_API_KEY is not set; export it or run 'nexus key set'")

const defaultSystemPrompt = `You are Nexus, an operations assistant running on the Commander workstation.
You can run shell commands on the user's remote machines with the execute_command tool.
Prefer read-only commands, explain what you are about to run, and summarize results concisely.
Never run destructive commands unless the user explicitly asks for them.`

// Config holds the application configuration
type Config struct {
	// Path the config was loaded from; Save writes back here.
	Path string `yaml:"-"`

	DataDir  string `yaml:"data_dir,omitempty"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Model settings
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	SystemPrompt string `yaml:"system_prompt,omitempty"`
	APIBaseURL   string `yaml:"api_base_url,omitempty"`

	// Conversation limits
	MaxHistory   int `yaml:"max_history"`
	MaxToolLoops int `yaml:"max_tool_loops"`

	SSH            SSHConfig `yaml:"ssh"`
	StatusSchedule string    `yaml:"status_schedule"`

	Machines []machine.Descriptor `yaml:"machines"`
}

// SSHConfig controls how the ssh client is invoked
type SSHConfig struct {
	Binary                   string   `yaml:"binary" json:"binary"`
	ConnectTimeoutSeconds    int      `yaml:"connect_timeout_seconds" json:"connect_timeout_seconds"`
	KeepaliveIntervalSeconds int      `yaml:"keepalive_interval_seconds" json:"keepalive_interval_seconds"`
	CommandTimeoutSeconds    int      `yaml:"command_timeout_seconds" json:"command_timeout_seconds"`
	ProbeTimeoutSeconds      int      `yaml:"probe_timeout_seconds" json:"probe_timeout_seconds"`
	ExtraArgs                []string `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`
}

// CommandTimeout returns the hard per-command timeout.
func (s SSHConfig) CommandTimeout() time.Duration {
	return time.Duration(s.CommandTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the liveness probe timeout.
func (s SSHConfig) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutSeconds) * time.Second
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:      DefaultDataDir(),
		Port:         27490,
		LogLevel:     "info",
		Model:        "claude-sonnet-4-5-20250929",
		MaxTokens:    4096,
		SystemPrompt: defaultSystemPrompt,
		MaxHistory:   20,
		MaxToolLoops: 5,
		SSH: SSHConfig{
			Binary:                   "ssh",
			ConnectTimeoutSeconds:    5,
			KeepaliveIntervalSeconds: 5,
			CommandTimeoutSeconds:    30,
			ProbeTimeoutSeconds:      5,
		},
		StatusSchedule: "@every 1m",
		Machines: []machine.Descriptor{
			{Name: "OMEN", Host: "localhost", Role: machine.RoleCommander, Enabled: true, OS: "windows"},
			{Name: "SIGMA", Host: "sigma", Role: machine.RoleRemote, Enabled: true, OS: "linux"},
			{Name: "Precision", Host: "precision", Role: machine.RoleRemote, Enabled: false, OS: "windows"},
		},
	}
}

// DefaultDataDir returns the platform-appropriate data directory.
func DefaultDataDir() string {
	dir, err := defaults.DataDir()
	if err != nil {
		return ".nexus"
	}
	return dir
}

// Load loads config.yaml from the data directory
func Load() (*Config, error) {
	path := filepath.Join(DefaultDataDir(), "config.yaml")
	cfg, err := LoadFrom(path)
	if errors.Is(err, os.ErrNotExist) {
		// Config doesn't exist, use defaults
		cfg = DefaultConfig()
		cfg.Path = path
		return cfg, nil
	}
	return cfg, err
}

// LoadFrom loads config from a specific path
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// A file that lists machines replaces the default table entirely.
	cfg.Machines = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Machines == nil {
		cfg.Machines = DefaultConfig().Machines
	}
	cfg.Path = path

	// Expand ~ in DataDir (config file may have a tilde path)
	if strings.HasPrefix(cfg.DataDir, "~/") {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
	}
	cfg.APIBaseURL = os.ExpandEnv(cfg.APIBaseURL)
	for i := range cfg.Machines {
		cfg.Machines[i].Host = os.ExpandEnv(cfg.Machines[i].Host)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fills zero values with defaults and rejects unusable settings.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = d.MaxHistory
	}
	if c.MaxToolLoops <= 0 {
		c.MaxToolLoops = d.MaxToolLoops
	}
	if c.SSH.Binary == "" {
		c.SSH.Binary = d.SSH.Binary
	}
	if c.SSH.ConnectTimeoutSeconds <= 0 {
		c.SSH.ConnectTimeoutSeconds = d.SSH.ConnectTimeoutSeconds
	}
	if c.SSH.KeepaliveIntervalSeconds <= 0 {
		c.SSH.KeepaliveIntervalSeconds = d.SSH.KeepaliveIntervalSeconds
	}
	if c.SSH.CommandTimeoutSeconds <= 0 {
		c.SSH.CommandTimeoutSeconds = d.SSH.CommandTimeoutSeconds
	}
	if c.SSH.ProbeTimeoutSeconds <= 0 {
		c.SSH.ProbeTimeoutSeconds = d.SSH.ProbeTimeoutSeconds
	}
	if _, err := machine.New(c.Machines); err != nil {
		return fmt.Errorf("machines: %w", err)
	}
	return nil
}

// Save writes the config back to Path, or to the data directory when Path
// is empty.
func (c *Config) Save() error {
	path := c.Path
	if path == "" {
		path = filepath.Join(c.DataDir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// DBPath returns the path to the SQLite audit database
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "data", "nexus.db")
}

// ResolveAPIKey returns the upstream API key from the environment or the OS
// keychain. It never logs the key.
func ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		return key, nil
	}
	key, err := keyring.Get()
	if err == nil && key != "" {
		return key, nil
	}
	return "", ErrMissingCredential
}
