package svc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/agent/runner"
	"github.com/nexus-app/nexus/internal/agent/session"
	"github.com/nexus-app/nexus/internal/agent/tools"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/daemon"
	"github.com/nexus-app/nexus/internal/db"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/realtime"
	"github.com/nexus-app/nexus/internal/remote"
)

// ServiceContext holds every shared dependency of the command surface.
type ServiceContext struct {
	Version string

	// configMu guards Config mutations and Save.
	configMu sync.Mutex
	Config   *config.Config

	DB       *db.Store
	Machines *machine.Registry
	Session  *session.State
	Runner   *runner.Runner
	Tools    *tools.Registry

	// Direct runs commands for execute_remote_command; tool calls go
	// through the tool registry with their own audit source.
	Direct   remote.Executor
	ProbeAll func(ctx context.Context, machines []machine.Descriptor) []remote.Status
	Monitor  *daemon.StatusMonitor
	Hub      *realtime.Hub

	lifetime context.Context
}

// Options overrides pieces of the default wiring, mostly for tests.
type Options struct {
	Version string
	// Client replaces the Anthropic client built from the API key.
	Client ai.Streamer
	// Executor replaces the ssh executor.
	Executor remote.Executor
	// ProbeAll replaces the ssh liveness probe.
	ProbeAll func(ctx context.Context, machines []machine.Descriptor) []remote.Status
	// SkipDB disables the audit log.
	SkipDB bool
}

// NewServiceContext wires the application from c. A missing API key is
// not an error: the server starts and model commands report it.
func NewServiceContext(c *config.Config, opts Options) (*ServiceContext, error) {
	machines, err := machine.New(c.Machines)
	if err != nil {
		return nil, fmt.Errorf("machines: %w", err)
	}

	svcCtx := &ServiceContext{
		Version:  opts.Version,
		Config:   c,
		Machines: machines,
		Session:  session.New(c.MaxHistory, c.Model),
		Hub:      realtime.NewHub(),
	}

	var recorder remote.Recorder
	if !opts.SkipDB {
		store, err := db.Open(c.DBPath())
		if err != nil {
			return nil, err
		}
		svcCtx.DB = store
		recorder = store
	}

	ssh := remote.NewSSHExecutor(remote.Options{
		Binary:            c.SSH.Binary,
		ConnectTimeout:    secondsOf(c.SSH.ConnectTimeoutSeconds),
		KeepaliveInterval: secondsOf(c.SSH.KeepaliveIntervalSeconds),
		CommandTimeout:    c.SSH.CommandTimeout(),
		ExtraArgs:         c.SSH.ExtraArgs,
	})
	var base remote.Executor = ssh
	if opts.Executor != nil {
		base = opts.Executor
	}
	svcCtx.Direct = remote.Audited(base, recorder, remote.SourceDirect)
	svcCtx.ProbeAll = remote.NewProber(ssh, c.SSH.ProbeTimeout()).ProbeAll
	if opts.ProbeAll != nil {
		svcCtx.ProbeAll = opts.ProbeAll
	}

	svcCtx.Tools = tools.NewRegistry()
	svcCtx.Tools.Register(tools.NewRemoteExecTool(machines, remote.Audited(base, recorder, remote.SourceTool)))

	client := opts.Client
	if client == nil {
		client = NewClient(c)
	}
	svcCtx.Runner = runner.New(client, svcCtx.Tools, svcCtx.Session, runner.Options{
		System:       c.SystemPrompt,
		MaxTokens:    c.MaxTokens,
		MaxToolLoops: c.MaxToolLoops,
	})

	svcCtx.Monitor, err = daemon.NewStatusMonitor(daemon.StatusConfig{
		Schedule: c.StatusSchedule,
		Probe: func(ctx context.Context) []remote.Status {
			return svcCtx.ProbeAll(ctx, machines.List())
		},
		OnChange: func(statuses []remote.Status) {
			svcCtx.Hub.Broadcast(realtime.NewMessage("machine-status", map[string]interface{}{
				"machines": statuses,
			}))
		},
	})
	if err != nil {
		svcCtx.Close()
		return nil, err
	}

	return svcCtx, nil
}

// NewClient builds the Anthropic client, or returns nil (as an untyped
// interface) when no API key is available.
func NewClient(c *config.Config) ai.Streamer {
	key, err := config.ResolveAPIKey()
	if err != nil {
		logging.Warnf("%v", err)
		return nil
	}
	return ai.NewClient(key, c.APIBaseURL)
}

// ReloadClient re-resolves the API key, e.g. after 'nexus key set'.
func (s *ServiceContext) ReloadClient() bool {
	client := NewClient(s.Config)
	s.Runner.SetClient(client)
	return client != nil
}

// SetLifetime sets the context background work (streaming turns started
// by a request) runs under. It is cancelled on shutdown.
func (s *ServiceContext) SetLifetime(ctx context.Context) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.lifetime = ctx
}

// Lifetime returns the context set by SetLifetime, or Background.
func (s *ServiceContext) Lifetime() context.Context {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	if s.lifetime == nil {
		return context.Background()
	}
	return s.lifetime
}

// UpdateConfig applies fn to the config under its lock and saves it.
func (s *ServiceContext) UpdateConfig(fn func(c *config.Config)) error {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	fn(s.Config)
	return s.Config.Save()
}

// SSHConfig returns a copy of the ssh settings.
func (s *ServiceContext) SSHConfig() config.SSHConfig {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	ssh := s.Config.SSH
	ssh.ExtraArgs = append([]string(nil), ssh.ExtraArgs...)
	return ssh
}

// Close releases resources.
func (s *ServiceContext) Close() {
	if s.Monitor != nil {
		s.Monitor.Stop()
	}
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			logging.Errorf("close database: %v", err)
		}
	}
}

func secondsOf(n int) time.Duration {
	return time.Duration(n) * time.Second
}
