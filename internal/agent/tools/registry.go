package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/remote"
)

// ToolResult represents the result of a tool execution
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
	// Execution is set when the tool ran a remote command.
	Execution *remote.Result `json:"execution,omitempty"`
}

// Tool interface that all tools must implement
type Tool interface {
	// Name returns the tool's unique name
	Name() string

	// Description returns a description for the AI
	Description() string

	// Schema returns the JSON schema for the tool's input, or nil when the
	// tool has nothing it could act on and must not be offered.
	Schema() json.RawMessage

	// Execute runs the tool with the given input
	Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error)
}

// Registry manages available tools
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tools[tool.Name()]; ok {
		logging.Warnf("[Registry] tool %q already registered (%T), overwritten by %T",
			tool.Name(), existing, tool)
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tools to offer the model for the next request,
// sorted by name. Schemas are rebuilt on every call.
func (r *Registry) Definitions() []ai.ToolDefinition {
	r.mu.RLock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	r.mu.RUnlock()

	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })

	var defs []ai.ToolDefinition
	for _, t := range tools {
		schema := t.Schema()
		if schema == nil {
			continue
		}
		defs = append(defs, ai.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		})
	}
	return defs
}

// Execute runs a tool call. Unknown tools and malformed arguments produce
// error results; nothing here aborts the turn.
func (r *Registry) Execute(ctx context.Context, call *ai.ToolCall) *ToolResult {
	tool, ok := r.Get(call.Name)
	if !ok {
		logging.Warnf("[Registry] Unknown tool: %s", call.Name)
		r.mu.RLock()
		available := make([]string, 0, len(r.tools))
		for name := range r.tools {
			available = append(available, name)
		}
		r.mu.RUnlock()
		sort.Strings(available)
		return &ToolResult{
			Content: fmt.Sprintf("Unknown tool: %s. Available tools: %s", call.Name, strings.Join(available, ", ")),
			IsError: true,
		}
	}
	if call.InputErr != nil {
		return &ToolResult{
			Content: fmt.Sprintf("Invalid arguments for %s: %v", call.Name, call.InputErr),
			IsError: true,
		}
	}

	logging.Debugf("[Registry] Executing tool: %s", call.Name)
	result, err := tool.Execute(ctx, call.Input)
	if err != nil {
		return &ToolResult{Content: fmt.Sprintf("Error: %v", err), IsError: true}
	}
	if result == nil {
		return &ToolResult{Content: "(no output)"}
	}
	return result
}
