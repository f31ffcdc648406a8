package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-app/nexus/internal/machine"
)

// fakeSSH writes a shell script standing in for ssh. It records each
// invocation in a marker file and dispatches on the remote command (the
// last argument).
func fakeSSH(t *testing.T) (binary, marker string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ssh script requires a POSIX shell")
	}
	dir := t.TempDir()
	marker = filepath.Join(dir, "invocations")
	binary = filepath.Join(dir, "ssh")
	script := `#!/bin/sh
echo "$@" >> "` + marker + `"
for last; do :; done
case "$last" in
  "echo ok") echo ok ;;
  "hang") exec sleep 10 ;;
  "fail") echo "disk not found" >&2; exit 3 ;;
  "korean") printf '\276\310\263\347' ;;
  *) printf '%s\n' "$@" ;;
esac
`
	require.NoError(t, os.WriteFile(binary, []byte(script), 0755))
	return binary, marker
}

func invocations(t *testing.T, marker string) int {
	t.Helper()
	data, err := os.ReadFile(marker)
	if errors.Is(err, os.ErrNotExist) {
		return 0
	}
	require.NoError(t, err)
	return strings.Count(string(data), "\n")
}

var sigma = machine.Descriptor{Name: "SIGMA", Host: "sigma.lan", Role: machine.RoleRemote, Enabled: true}

func TestExecutePassesBatchModeArgs(t *testing.T) {
	bin, _ := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin, ExtraArgs: []string{"-p", "2222"}})

	res := e.Execute(context.Background(), sigma, "df -h")
	require.True(t, res.Success, "stderr: %s", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "SIGMA", res.MachineName)
	assert.Equal(t, "df -h", res.Command)

	lines := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	assert.Equal(t, []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=5",
		"-o", "ServerAliveInterval=5",
		"-o", "ServerAliveCountMax=2",
		"-p", "2222",
		"sigma.lan", "df -h",
	}, lines)
}

func TestExecuteNonZeroExit(t *testing.T) {
	bin, _ := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin})

	res := e.Execute(context.Background(), sigma, "fail")
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "disk not found\n", res.Stderr)
}

func TestExecuteDecodesLegacyOutput(t *testing.T) {
	bin, _ := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin})

	res := e.Execute(context.Background(), sigma, "korean")
	require.True(t, res.Success)
	assert.Equal(t, "안녕", res.Stdout)
}

func TestExecuteTimeoutKillsProcess(t *testing.T) {
	bin, _ := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin, CommandTimeout: 200 * time.Millisecond})

	start := time.Now()
	res := e.Execute(context.Background(), sigma, "hang")
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.Equal(t, TimeoutMessage, res.Stderr)
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestExecuteHonorsCancellation(t *testing.T) {
	bin, _ := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res := e.Execute(ctx, sigma, "hang")

	assert.False(t, res.Success)
	assert.False(t, res.TimedOut)
	assert.Contains(t, res.Stderr, "cancelled")
}

func TestExecuteRejectsCommanderWithoutSpawning(t *testing.T) {
	bin, marker := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin})

	omen := machine.Descriptor{Name: "OMEN", Host: "localhost", Role: machine.RoleCommander, Enabled: true}
	res := e.Execute(context.Background(), omen, "ls")

	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "not supported for this role")
	assert.Equal(t, 0, invocations(t, marker))
}

func TestExecuteRejectsDisabledWithoutSpawning(t *testing.T) {
	bin, marker := fakeSSH(t)
	e := NewSSHExecutor(Options{Binary: bin})

	off := sigma
	off.Enabled = false
	res := e.Execute(context.Background(), off, "ls")

	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "disabled")
	assert.Equal(t, 0, invocations(t, marker))
}

func TestExecuteMissingBinary(t *testing.T) {
	e := NewSSHExecutor(Options{Binary: filepath.Join(t.TempDir(), "no-such-ssh")})
	res := e.Execute(context.Background(), sigma, "ls")
	assert.False(t, res.Success)
	assert.Contains(t, res.Stderr, "failed to start")
}

func TestProbeAll(t *testing.T) {
	bin, marker := fakeSSH(t)
	p := NewProber(NewSSHExecutor(Options{Binary: bin}), time.Second)

	machines := []machine.Descriptor{
		{Name: "OMEN", Host: "localhost", Role: machine.RoleCommander, Enabled: true},
		sigma,
		{Name: "Precision", Host: "precision.lan", Role: machine.RoleRemote, Enabled: false},
	}
	statuses := p.ProbeAll(context.Background(), machines)

	require.Len(t, statuses, 3)
	assert.Equal(t, "OMEN", statuses[0].Name)
	assert.True(t, statuses[0].Online)
	assert.Equal(t, "SIGMA", statuses[1].Name)
	assert.True(t, statuses[1].Online)
	assert.Equal(t, "Precision", statuses[2].Name)
	assert.False(t, statuses[2].Online)

	// Only SIGMA was contacted.
	assert.Equal(t, 1, invocations(t, marker))
}

type memRecorder struct {
	mu      sync.Mutex
	results []Result
	sources []Source
}

func (m *memRecorder) RecordExecution(_ context.Context, res Result, source Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, res)
	m.sources = append(m.sources, source)
	return nil
}

func TestAuditedRecordsEveryResult(t *testing.T) {
	bin, _ := fakeSSH(t)
	rec := &memRecorder{}
	e := Audited(NewSSHExecutor(Options{Binary: bin}), rec, SourceDirect)

	e.Execute(context.Background(), sigma, "uptime")
	e.Execute(context.Background(), machine.Descriptor{Name: "OMEN", Role: machine.RoleCommander, Enabled: true}, "ls")

	require.Len(t, rec.results, 2)
	assert.True(t, rec.results[0].Success)
	assert.False(t, rec.results[1].Success)
	assert.Equal(t, []Source{SourceDirect, SourceDirect}, rec.sources)
}
