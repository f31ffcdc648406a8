package remote

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nexus-app/nexus/internal/machine"
)

// Status is the liveness of one machine.
type Status struct {
	Name      string       `json:"name"`
	Role      machine.Role `json:"role"`
	Host      string       `json:"host"`
	Enabled   bool         `json:"enabled"`
	Online    bool         `json:"online"`
	LatencyMS int64        `json:"latency_ms,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Prober checks machine reachability with a short ssh echo.
type Prober struct {
	exec    *SSHExecutor
	timeout time.Duration
}

// NewProber returns a prober sharing exec's ssh options.
func NewProber(exec *SSHExecutor, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Prober{exec: exec, timeout: timeout}
}

// Probe reports whether m is reachable. The Commander is always online and
// disabled machines are reported offline without contacting them.
func (p *Prober) Probe(ctx context.Context, m machine.Descriptor) Status {
	st := Status{Name: m.Name, Role: m.Role, Host: m.Host, Enabled: m.Enabled}
	if m.IsCommander() {
		st.Online = true
		return st
	}
	if !m.Enabled {
		st.Error = "disabled"
		return st
	}

	res := p.exec.run(ctx, m.Host, "echo ok", p.timeout, Result{MachineName: m.Name, ExitCode: -1})
	st.LatencyMS = res.DurationMS
	st.Online = res.Success && strings.Contains(res.Stdout, "ok")
	if !st.Online {
		st.Error = strings.TrimSpace(res.Stderr)
	}
	return st
}

// ProbeAll probes every machine concurrently and returns statuses in input
// order.
func (p *Prober) ProbeAll(ctx context.Context, machines []machine.Descriptor) []Status {
	out := make([]Status, len(machines))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range machines {
		g.Go(func() error {
			out[i] = p.Probe(gctx, m)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
