// Package remote runs shell commands on registered machines over ssh.
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
)

var (
	// ErrUnsupportedRole is returned for the Commander machine.
	ErrUnsupportedRole = errors.New("command execution is not supported for this role")
	// ErrMachineDisabled is returned for machines switched off in the registry.
	ErrMachineDisabled = errors.New("machine is disabled")
)

// TimeoutMessage is the stderr of a command killed by the hard timeout.
const TimeoutMessage = "timeout"

// Result is the outcome of one remote command.
type Result struct {
	MachineName string `json:"machine_name"`
	Command     string `json:"command"`
	Stdout      string `json:"stdout"`
	Stderr      string `json:"stderr"`
	ExitCode    int    `json:"exit_code"`
	Success     bool   `json:"success"`
	TimedOut    bool   `json:"timed_out,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

// Executor runs a single command on a machine. Implementations never retry
// and report every failure inside the Result.
type Executor interface {
	Execute(ctx context.Context, m machine.Descriptor, command string) Result
}

// CheckTarget reports why m cannot receive commands, or nil.
func CheckTarget(m machine.Descriptor) error {
	if m.IsCommander() {
		return fmt.Errorf("%w (%s)", ErrUnsupportedRole, m.Role)
	}
	if !m.Enabled {
		return fmt.Errorf("%w: %s", ErrMachineDisabled, m.Name)
	}
	return nil
}

// Options configures the ssh invocation.
type Options struct {
	Binary            string
	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	CommandTimeout    time.Duration
	ExtraArgs         []string
}

// SSHExecutor runs commands through the system ssh client in batch mode.
type SSHExecutor struct {
	opts Options
}

// NewSSHExecutor returns an executor with zero options replaced by defaults
// (ssh, 5s connect, 5s keepalive, 30s hard timeout).
func NewSSHExecutor(opts Options) *SSHExecutor {
	if opts.Binary == "" {
		opts.Binary = "ssh"
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.KeepaliveInterval <= 0 {
		opts.KeepaliveInterval = 5 * time.Second
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 30 * time.Second
	}
	return &SSHExecutor{opts: opts}
}

// Args returns the ssh argument vector for running command on host.
func (e *SSHExecutor) Args(host, command string) []string {
	args := []string{
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout=" + strconv.Itoa(seconds(e.opts.ConnectTimeout)),
		"-o", "ServerAliveInterval=" + strconv.Itoa(seconds(e.opts.KeepaliveInterval)),
		"-o", "ServerAliveCountMax=2",
	}
	args = append(args, e.opts.ExtraArgs...)
	return append(args, host, command)
}

func seconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

// Execute runs command on m. Precondition failures return without spawning
// anything.
func (e *SSHExecutor) Execute(ctx context.Context, m machine.Descriptor, command string) Result {
	res := Result{MachineName: m.Name, Command: command, ExitCode: -1}
	if err := CheckTarget(m); err != nil {
		res.Stderr = err.Error()
		return res
	}
	return e.run(ctx, m.Host, command, e.opts.CommandTimeout, res)
}

// run starts ssh and races its completion against the timeout and ctx.
// On the losing paths the process group is killed and reaped before
// returning.
func (e *SSHExecutor) run(ctx context.Context, host, command string, timeout time.Duration, res Result) Result {
	start := time.Now()

	cmd := exec.Command(e.opts.Binary, e.Args(host, command)...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		res.Stderr = fmt.Sprintf("failed to start %s: %v", e.opts.Binary, err)
		res.DurationMS = time.Since(start).Milliseconds()
		return res
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		res.Stdout = Decode(stdout.Bytes())
		res.Stderr = Decode(stderr.Bytes())
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			res.ExitCode = 0
			res.Success = true
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
		default:
			if res.Stderr != "" {
				res.Stderr += "\n"
			}
			res.Stderr += err.Error()
		}
	case <-timer.C:
		killProcess(cmd)
		<-done
		logging.Warnf("[Remote] %s: command timed out after %v", host, timeout)
		res.Stdout = Decode(stdout.Bytes())
		res.Stderr = TimeoutMessage
		res.TimedOut = true
	case <-ctx.Done():
		killProcess(cmd)
		<-done
		res.Stdout = Decode(stdout.Bytes())
		res.Stderr = "cancelled: " + ctx.Err().Error()
	}
	res.DurationMS = time.Since(start).Milliseconds()
	return res
}
