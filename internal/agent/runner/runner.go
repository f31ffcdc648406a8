// Package runner drives one conversational turn: it streams the model's
// reply, runs any requested tools in order, feeds the results back and
// repeats until the model answers or the loop bound is hit.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/agent/session"
	"github.com/nexus-app/nexus/internal/agent/tools"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/remote"
)

// DefaultMaxToolLoops bounds the API calls of a single turn.
const DefaultMaxToolLoops = 5

// ErrAPI wraps every failure of a model call.
var ErrAPI = errors.New("API error")

// TurnState is the terminal state of a turn.
type TurnState string

const (
	StateDone         TurnState = "done"
	StateAbortedLimit TurnState = "aborted_limit"
)

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	Answer     string             `json:"answer"`
	State      TurnState          `json:"state"`
	Stats      session.TokenStats `json:"token_stats"`
	Executions []remote.Result    `json:"tool_executions"`
	Iterations int                `json:"iterations"`
}

// Options configures a Runner.
type Options struct {
	System       string
	MaxTokens    int
	MaxToolLoops int
}

// Runner executes turns against the shared session.
type Runner struct {
	mu     sync.RWMutex
	client ai.Streamer

	tools *tools.Registry
	state *session.State
	opts  Options
}

// New creates a runner. client may be nil when no credential is
// configured; turns then fail with config.ErrMissingCredential.
func New(client ai.Streamer, toolRegistry *tools.Registry, state *session.State, opts Options) *Runner {
	if opts.MaxToolLoops <= 0 {
		opts.MaxToolLoops = DefaultMaxToolLoops
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	return &Runner{client: client, tools: toolRegistry, state: state, opts: opts}
}

// SetClient swaps the model client, e.g. after the API key changed.
func (r *Runner) SetClient(client ai.Streamer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.client = client
}

// Ready reports whether a model client is configured.
func (r *Runner) Ready() bool {
	return r.getClient() != nil
}

func (r *Runner) getClient() ai.Streamer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.client
}

// Chat runs a turn without live events.
func (r *Runner) Chat(ctx context.Context, text string) (*TurnResult, error) {
	return r.Run(ctx, text, DiscardSink)
}

// Run executes one turn. The user's message is appended to history before
// the first call and stays there even if the turn fails. Usage and the
// answer are committed only when the turn completes.
func (r *Runner) Run(ctx context.Context, text string, sink Sink) (*TurnResult, error) {
	if sink == nil {
		sink = DiscardSink
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message must not be empty")
	}
	client := r.getClient()
	if client == nil {
		sink.Emit(Event{Type: EventStreamError, Error: config.ErrMissingCredential.Error()})
		return nil, config.ErrMissingCredential
	}

	history := r.state.BeginTurn(text)
	model := r.state.Model()
	messages := historyMessages(history)

	sink.Emit(Event{Type: EventStreamStart})

	var (
		usage      session.TurnUsage
		segments   []string
		executions []remote.Result
		state      = StateDone
		iteration  int
	)

	for iteration = 1; ; iteration++ {
		if iteration > 1 {
			sink.Emit(Event{Type: EventStreamToolContinue})
		}

		req := &ai.ChatRequest{
			Model:     model,
			System:    r.opts.System,
			MaxTokens: r.opts.MaxTokens,
			Messages:  messages,
			Tools:     r.tools.Definitions(),
		}
		logging.Debugf("[Runner] iteration %d: %d messages, %d tools", iteration, len(messages), len(req.Tools))

		res, err := client.Stream(ctx, req, func(delta string) {
			sink.Emit(Event{Type: EventStreamDelta, Text: delta})
		})
		if err != nil {
			err = fmt.Errorf("%w: %w", ErrAPI, err)
			logging.Errorf("[Runner] turn failed at iteration %d: %v", iteration, err)
			sink.Emit(Event{Type: EventStreamError, Error: err.Error()})
			return nil, err
		}
		usage.AddCall(res.Usage.InputTokens, res.Usage.OutputTokens)

		if t := strings.TrimSpace(res.Text); t != "" {
			segments = append(segments, t)
		}
		messages = append(messages, ai.AssistantMessage(res.Text, res.ToolCalls))

		if !res.PendingTools() {
			break
		}
		if iteration >= r.opts.MaxToolLoops {
			logging.Warnf("[Runner] tool loop limit reached after %d calls; %d tool calls dropped",
				iteration, len(res.ToolCalls))
			segments = append(segments, limitWarning(r.opts.MaxToolLoops))
			state = StateAbortedLimit
			break
		}

		results := make([]ai.ToolResult, 0, len(res.ToolCalls))
		for i := range res.ToolCalls {
			call := &res.ToolCalls[i]
			machineName, command := describeCall(call)
			sink.Emit(Event{Type: EventToolExecuting, Machine: machineName, Command: command})

			out := r.tools.Execute(ctx, call)

			sink.Emit(Event{Type: EventToolCompleted, Machine: machineName, Command: command, Success: !out.IsError})
			if out.Execution != nil {
				executions = append(executions, *out.Execution)
			}
			results = append(results, ai.ToolResult{
				ToolCallID: call.ID,
				Content:    out.Content,
				IsError:    out.IsError,
			})
		}
		messages = append(messages, ai.ToolResultsMessage(results))
	}

	answer := strings.Join(segments, "\n\n")
	stats := r.state.CompleteTurn(answer, usage)
	if executions == nil {
		executions = []remote.Result{}
	}

	sink.Emit(Event{Type: EventStreamEnd, Stats: &stats, Executions: executions})
	return &TurnResult{
		Answer:     answer,
		State:      state,
		Stats:      stats,
		Executions: executions,
		Iterations: iteration,
	}, nil
}

func limitWarning(n int) string {
	return fmt.Sprintf("⚠️ Tool loop limit reached (%d iterations); stopping before running more commands.", n)
}

// describeCall extracts the target and command for progress events. Calls
// that are not remote executions are reported by tool name.
func describeCall(call *ai.ToolCall) (string, string) {
	if call.Name != tools.RemoteExecName || call.InputErr != nil {
		return "", call.Name
	}
	// partial input still names what it can
	in, _ := tools.ParseInput(call.Input)
	return in.MachineName, in.Command
}

func historyMessages(entries []session.Entry) []ai.Message {
	out := make([]ai.Message, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case session.RoleAssistant:
			out = append(out, ai.AssistantMessage(e.Text, nil))
		default:
			out = append(out, ai.UserMessage(e.Text))
		}
	}
	return out
}
