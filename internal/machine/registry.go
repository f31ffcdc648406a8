// Package machine holds the table of addressable hosts and decides which of
// them may be targeted by remote command execution.
package machine

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Role distinguishes the local controlling machine from remote targets.
type Role string

const (
	// RoleCommander is the local machine. It is never an execution target.
	RoleCommander Role = "Commander"
	// RoleRemote is a host reachable over ssh.
	RoleRemote Role = "Remote"
)

// ErrUnknownMachine is returned when a name does not match any descriptor.
var ErrUnknownMachine = errors.New("unknown machine")

// Descriptor describes one addressable machine.
type Descriptor struct {
	Name    string `yaml:"name" json:"name"`
	Host    string `yaml:"host" json:"host"`
	Role    Role   `yaml:"role" json:"role"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
	OS      string `yaml:"os,omitempty" json:"os,omitempty"`
	Notes   string `yaml:"notes,omitempty" json:"notes,omitempty"`
	InfoRef string `yaml:"info_ref,omitempty" json:"info_ref,omitempty"`
}

// IsCommander reports whether d is the local controlling machine.
func (d Descriptor) IsCommander() bool {
	return d.Role == RoleCommander
}

// IsTarget reports whether d may receive remote commands.
func (d Descriptor) IsTarget() bool {
	return d.Enabled && !d.IsCommander()
}

// Registry is the shared, read-mostly machine table.
type Registry struct {
	mu       sync.RWMutex
	machines []Descriptor
}

// New validates descriptors and returns a registry holding them in the
// given order.
func New(descriptors []Descriptor) (*Registry, error) {
	seen := make(map[string]bool, len(descriptors))
	machines := make([]Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		d.Name = strings.TrimSpace(d.Name)
		if d.Name == "" {
			return nil, errors.New("machine name must not be empty")
		}
		key := strings.ToLower(d.Name)
		if seen[key] {
			return nil, fmt.Errorf("duplicate machine name %q", d.Name)
		}
		seen[key] = true
		d.Host = strings.TrimSpace(d.Host)
		if err := checkHost(d.Host); err != nil {
			return nil, fmt.Errorf("machine %q: %w", d.Name, err)
		}
		switch d.Role {
		case RoleCommander, RoleRemote:
		case "":
			d.Role = RoleRemote
		default:
			return nil, fmt.Errorf("machine %q: unknown role %q", d.Name, d.Role)
		}
		machines = append(machines, d)
	}
	return &Registry{machines: machines}, nil
}

// Get looks a machine up by exact name, falling back to a case-insensitive
// match.
func (r *Registry) Get(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i := r.indexLocked(name)
	if i < 0 {
		return Descriptor{}, false
	}
	return r.machines[i], true
}

func (r *Registry) indexLocked(name string) int {
	for i, m := range r.machines {
		if m.Name == name {
			return i
		}
	}
	for i, m := range r.machines {
		if strings.EqualFold(m.Name, name) {
			return i
		}
	}
	return -1
}

// List returns a copy of every descriptor in configuration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Descriptor, len(r.machines))
	copy(out, r.machines)
	return out
}

// Targets returns the enabled, non-Commander machines in configuration order.
func (r *Registry) Targets() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Descriptor
	for _, m := range r.machines {
		if m.IsTarget() {
			out = append(out, m)
		}
	}
	return out
}

// Update changes the host and/or enabled flag of a machine. Nil arguments
// leave the field untouched. The updated descriptor is returned.
func (r *Registry) Update(name string, host *string, enabled *bool) (Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexLocked(name)
	if i < 0 {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownMachine, name)
	}
	if host != nil {
		h := strings.TrimSpace(*host)
		if h == "" {
			return Descriptor{}, errors.New("host must not be empty")
		}
		if err := checkHost(h); err != nil {
			return Descriptor{}, err
		}
		r.machines[i].Host = h
	}
	if enabled != nil {
		r.machines[i].Enabled = *enabled
	}
	return r.machines[i], nil
}

// checkHost rejects hosts ssh would parse as an option.
func checkHost(host string) error {
	if strings.HasPrefix(host, "-") {
		return fmt.Errorf("invalid host %q: must not start with '-'", host)
	}
	return nil
}
