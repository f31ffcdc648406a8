// Package daemon runs background services alongside the server.
package daemon

import (
	"context"
	"fmt"
	"sync"

	cronlib "github.com/robfig/cron/v3"

	"github.com/nexus-app/nexus/internal/crashlog"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/remote"
)

// DefaultSchedule probes every machine once a minute.
const DefaultSchedule = "@every 1m"

// StatusConfig configures the status monitor
type StatusConfig struct {
	Schedule string // cron spec or descriptor (default: @every 1m)
	// Probe returns the status of every machine, in registry order.
	Probe func(ctx context.Context) []remote.Status
	// OnChange is called with the new snapshot when any machine went
	// online or offline, or the set of machines changed.
	OnChange func(statuses []remote.Status)
}

// StatusMonitor periodically probes the machines and keeps the latest
// snapshot.
type StatusMonitor struct {
	cfg       StatusConfig
	scheduler *cronlib.Cron

	mu       sync.RWMutex
	snapshot []remote.Status
	running  bool
	cancel   context.CancelFunc

	// serializes probes so refreshes and scheduled runs don't interleave
	probeMu sync.Mutex
}

// NewStatusMonitor validates the schedule and creates a monitor.
func NewStatusMonitor(cfg StatusConfig) (*StatusMonitor, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Probe == nil {
		return nil, fmt.Errorf("status monitor: probe function is required")
	}
	if _, err := cronlib.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid status schedule %q: %w", cfg.Schedule, err)
	}
	return &StatusMonitor{
		cfg: cfg,
		scheduler: cronlib.New(cronlib.WithChain(
			cronlib.SkipIfStillRunning(cronlib.DiscardLogger),
		)),
	}, nil
}

// Start runs a first probe in the background and schedules the rest.
func (m *StatusMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	if _, err := m.scheduler.AddFunc(m.cfg.Schedule, func() {
		defer crashlog.Recover("status", nil)
		m.Refresh(ctx)
	}); err != nil {
		cancel()
		return fmt.Errorf("schedule status probe: %w", err)
	}
	m.cancel = cancel
	m.running = true
	m.scheduler.Start()
	crashlog.Go("status", nil, func() { m.Refresh(ctx) })

	logging.Infof("[status] monitor started (%s)", m.cfg.Schedule)
	return nil
}

// Stop cancels in-flight probes and waits for scheduled jobs to finish.
func (m *StatusMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	<-m.scheduler.Stop().Done()
}

// Refresh probes every machine now, stores the snapshot and returns it.
func (m *StatusMonitor) Refresh(ctx context.Context) []remote.Status {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	statuses := m.cfg.Probe(ctx)
	if ctx.Err() != nil {
		return statuses
	}

	m.mu.Lock()
	changed := statusChanged(m.snapshot, statuses)
	m.snapshot = statuses
	m.mu.Unlock()

	if changed {
		logging.Debugf("[status] machine status changed")
		if m.cfg.OnChange != nil {
			m.cfg.OnChange(copyStatuses(statuses))
		}
	}
	return copyStatuses(statuses)
}

// Snapshot returns the latest probe results, or nil before the first probe
// completes.
func (m *StatusMonitor) Snapshot() []remote.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyStatuses(m.snapshot)
}

func statusChanged(prev, next []remote.Status) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i].Name != next[i].Name || prev[i].Online != next[i].Online {
			return true
		}
	}
	return false
}

func copyStatuses(in []remote.Status) []remote.Status {
	if in == nil {
		return nil
	}
	out := make([]remote.Status, len(in))
	copy(out, in)
	return out
}
