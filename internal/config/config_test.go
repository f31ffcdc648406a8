package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nexus-app/nexus/internal/machine"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxHistory != 20 {
		t.Errorf("expected MaxHistory 20, got %d", cfg.MaxHistory)
	}
	if cfg.MaxToolLoops != 5 {
		t.Errorf("expected MaxToolLoops 5, got %d", cfg.MaxToolLoops)
	}
	if cfg.SSH.CommandTimeoutSeconds != 30 {
		t.Errorf("expected 30s command timeout, got %d", cfg.SSH.CommandTimeoutSeconds)
	}
	if cfg.SSH.ConnectTimeoutSeconds < 3 || cfg.SSH.ConnectTimeoutSeconds > 5 {
		t.Errorf("connect timeout out of range: %d", cfg.SSH.ConnectTimeoutSeconds)
	}

	commanders := 0
	for _, m := range cfg.Machines {
		if m.Role == machine.RoleCommander {
			commanders++
		}
	}
	if commanders != 1 {
		t.Errorf("expected exactly one Commander, got %d", commanders)
	}
}

func TestLoadFromAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("SIGMA_HOST", "10.1.1.2")
	yml := `port: 9000
model: claude-haiku-4-5-20251001
machines:
  - name: BOX
    host: ${SIGMA_HOST}
    role: Remote
    enabled: true
`
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.MaxToolLoops != 5 {
		t.Errorf("expected default MaxToolLoops, got %d", cfg.MaxToolLoops)
	}
	if len(cfg.Machines) != 1 || cfg.Machines[0].Host != "10.1.1.2" {
		t.Errorf("machines not loaded/expanded: %+v", cfg.Machines)
	}
	if cfg.Path != path {
		t.Errorf("expected Path %s, got %s", path, cfg.Path)
	}
}

func TestLoadFromRejectsDuplicateMachines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `machines:
  - {name: A, host: a}
  - {name: a, host: b}
`
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected duplicate machine error")
	}
}

func TestLoadFromRejectsOptionLikeHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `machines:
  - {name: A, host: "-oProxyCommand=touch /tmp/x"}
`
	if err := os.WriteFile(path, []byte(yml), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected host starting with '-' to be rejected")
	}

	c := DefaultConfig()
	c.Machines[1].Host = "-F/dev/null"
	if err := c.Validate(); err == nil {
		t.Fatal("Validate accepted host starting with '-'")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("NEXUS_DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Machines) != 3 {
		t.Errorf("expected default machines, got %d", len(cfg.Machines))
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Path = path
	cfg.Machines[1].Host = "sigma.example"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.Machines[1].Host != "sigma.example" {
		t.Errorf("host not persisted: %+v", loaded.Machines[1])
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("NEXUS_KEYRING_DISABLED", "1")

	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := ResolveAPIKey(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", " sk-test ")
	key, err := ResolveAPIKey()
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "sk-test" {
		t.Errorf("expected trimmed key, got %q", key)
	}
}
