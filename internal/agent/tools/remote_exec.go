package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/remote"
)

// RemoteExecName is the name of the remote command tool.
const RemoteExecName = "execute_command"

const remoteExecDescription = "Execute a shell command on one of the user's remote machines over SSH. " +
	"The command runs non-interactively with a 30 second timeout. " +
	"Returns the exit code, stdout and stderr."

// maxOutput caps the stdout/stderr text handed back to the model.
const maxOutput = 50000

// RemoteExecInput is the argument object of execute_command.
type RemoteExecInput struct {
	MachineName string `json:"machine_name"`
	Command     string `json:"command"`
}

// BuildSchema returns the input schema for execute_command with
// machine_name constrained to the current targets, or nil when there are
// none.
func BuildSchema(reg *machine.Registry) json.RawMessage {
	targets := reg.Targets()
	if len(targets) == 0 {
		return nil
	}
	names := make([]string, 0, len(targets))
	var hints []string
	for _, m := range targets {
		names = append(names, m.Name)
		hint := m.Name
		if m.OS != "" {
			hint += " (" + m.OS + ")"
		}
		if m.Notes != "" {
			hint += ": " + m.Notes
		}
		hints = append(hints, hint)
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"machine_name": map[string]any{
				"type":        "string",
				"enum":        names,
				"description": "Target machine. " + strings.Join(hints, "; "),
			},
			"command": map[string]any{
				"type":        "string",
				"description": "Shell command to run on the target machine",
			},
		},
		"required": []string{"machine_name", "command"},
	}
	data, _ := json.Marshal(schema)
	return data
}

// BuildDefinition returns the single remote execution tool for the
// current registry state, or nil when no machine can be targeted.
func BuildDefinition(reg *machine.Registry) *ai.ToolDefinition {
	schema := BuildSchema(reg)
	if schema == nil {
		return nil
	}
	return &ai.ToolDefinition{
		Name:        RemoteExecName,
		Description: remoteExecDescription,
		InputSchema: schema,
	}
}

// RemoteExecTool runs commands on registered machines.
type RemoteExecTool struct {
	machines *machine.Registry
	executor remote.Executor
}

// NewRemoteExecTool creates the tool.
func NewRemoteExecTool(machines *machine.Registry, executor remote.Executor) *RemoteExecTool {
	return &RemoteExecTool{machines: machines, executor: executor}
}

func (t *RemoteExecTool) Name() string { return RemoteExecName }

func (t *RemoteExecTool) Description() string { return remoteExecDescription }

func (t *RemoteExecTool) Schema() json.RawMessage { return BuildSchema(t.machines) }

// ParseInput decodes and validates execute_command arguments.
func ParseInput(input json.RawMessage) (RemoteExecInput, error) {
	var in RemoteExecInput
	if err := json.Unmarshal(input, &in); err != nil {
		return in, fmt.Errorf("invalid arguments: %w", err)
	}
	in.MachineName = strings.TrimSpace(in.MachineName)
	if in.MachineName == "" {
		return in, errors.New("machine_name is required")
	}
	if strings.TrimSpace(in.Command) == "" {
		return in, errors.New("command is required")
	}
	return in, nil
}

// Execute runs the command. Precondition failures from the executor come
// back as error results, never as Go errors.
func (t *RemoteExecTool) Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error) {
	in, err := ParseInput(input)
	if err != nil {
		return &ToolResult{Content: err.Error(), IsError: true}, nil
	}

	m, ok := t.machines.Get(in.MachineName)
	if !ok {
		return &ToolResult{
			Content: fmt.Sprintf("%v: %s", machine.ErrUnknownMachine, in.MachineName),
			IsError: true,
		}, nil
	}

	res := t.executor.Execute(ctx, m, in.Command)
	return &ToolResult{
		Content:   FormatResult(res),
		IsError:   !res.Success,
		Execution: &res,
	}, nil
}

// FormatResult renders an execution for the model.
func FormatResult(res remote.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "machine: %s\nexit_code: %d\n", res.MachineName, res.ExitCode)
	if res.TimedOut {
		b.WriteString("status: timed out\n")
	}
	b.WriteString("stdout:\n")
	if res.Stdout == "" {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString(truncate(res.Stdout))
		if !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if res.Stderr != "" {
		b.WriteString("stderr:\n")
		b.WriteString(truncate(res.Stderr))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	// back off to a rune boundary
	cut := maxOutput
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "\n... (output truncated)"
}
