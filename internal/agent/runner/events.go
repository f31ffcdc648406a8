package runner

import (
	"github.com/nexus-app/nexus/internal/agent/session"
	"github.com/nexus-app/nexus/internal/remote"
)

// EventType names a live turn event.
type EventType string

const (
	EventStreamStart        EventType = "stream-start"
	EventStreamDelta        EventType = "stream-delta"
	EventToolExecuting      EventType = "tool-executing"
	EventToolCompleted      EventType = "tool-completed"
	EventStreamToolContinue EventType = "stream-tool-continue"
	EventStreamEnd          EventType = "stream-end"
	EventStreamError        EventType = "stream-error"
)

// Event is one notification emitted while a turn runs. Only the fields
// relevant to Type are set.
type Event struct {
	Type       EventType           `json:"type"`
	Text       string              `json:"text,omitempty"`
	Machine    string              `json:"machine,omitempty"`
	Command    string              `json:"command,omitempty"`
	Success    bool                `json:"success,omitempty"`
	Stats      *session.TokenStats `json:"token_stats,omitempty"`
	Executions []remote.Result     `json:"tool_executions,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Sink receives events in the order they happen. Emit must not block for
// long; it is called on the turn's goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// DiscardSink drops every event.
var DiscardSink Sink = SinkFunc(func(Event) {})
