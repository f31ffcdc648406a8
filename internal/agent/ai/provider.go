package ai

import (
	"context"
	"encoding/json"
)

// Stop reasons reported by message_delta.
const (
	StopEndTurn   = "end_turn"
	StopToolUse   = "tool_use"
	StopMaxTokens = "max_tokens"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// BlockKind tags a ContentBlock variant.
type BlockKind string

const (
	BlockText    BlockKind = "text"
	BlockToolUse BlockKind = "tool_use"
)

// ContentBlock is one block of an assistant response. Exactly one of Text
// or ToolUse is meaningful, selected by Kind.
type ContentBlock struct {
	Kind    BlockKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	ToolUse *ToolCall `json:"tool_use,omitempty"`
}

// ToolCall represents a tool invocation from the AI
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
	// Index is the stream block index the call was assembled at.
	Index int64 `json:"index"`
	// InputErr is set when the accumulated arguments are not valid JSON.
	InputErr error `json:"-"`
}

// ToolResult is the answer to one ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ToolDefinition describes a tool available to the AI
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// Usage is the token usage of one API call.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Message is one entry of the outgoing message list. User messages carry
// either Text or ToolResults; assistant messages carry Text and/or
// ToolCalls.
type Message struct {
	Role        string       `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// UserMessage returns a plain user text message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantMessage returns the assistant turn produced by one call.
func AssistantMessage(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

// ToolResultsMessage combines all results of one iteration into a single
// user message, preserving order.
func ToolResultsMessage(results []ToolResult) Message {
	return Message{Role: RoleUser, ToolResults: results}
}

// ChatRequest represents a request to the AI provider
type ChatRequest struct {
	Model     string           `json:"model"`
	System    string           `json:"system,omitempty"`
	MaxTokens int              `json:"max_tokens,omitempty"`
	Messages  []Message        `json:"messages"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

// StreamResult is the reduced outcome of one streaming call.
type StreamResult struct {
	Text       string
	Content    []ContentBlock
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
	// Started is true once a message_start event was seen.
	Started bool
	// Skipped counts data lines that could not be decoded.
	Skipped int
}

// PendingTools reports whether the model stopped to wait for tool results.
func (r *StreamResult) PendingTools() bool {
	return len(r.ToolCalls) > 0 && r.StopReason == StopToolUse
}

// Streamer sends a request and reduces the streamed response. onText
// receives text deltas as they arrive.
type Streamer interface {
	Stream(ctx context.Context, req *ChatRequest, onText func(string)) (*StreamResult, error)
}
