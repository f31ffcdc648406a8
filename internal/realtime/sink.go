package realtime

import (
	"github.com/nexus-app/nexus/internal/agent/runner"
)

// Broadcaster is satisfied by *Hub.
type Broadcaster interface {
	Broadcast(msg *Message)
}

// Sink forwards runner events to every connected client, tagged with the
// request they belong to.
type Sink struct {
	out       Broadcaster
	requestID string
}

// NewSink returns a runner.Sink for one streaming turn.
func NewSink(out Broadcaster, requestID string) *Sink {
	return &Sink{out: out, requestID: requestID}
}

// Emit implements runner.Sink.
func (s *Sink) Emit(e runner.Event) {
	s.out.Broadcast(NewMessage(string(e.Type), EventData(e, s.requestID)))
}

// EventData flattens an event into the message payload.
func EventData(e runner.Event, requestID string) map[string]interface{} {
	data := map[string]interface{}{"request_id": requestID}
	switch e.Type {
	case runner.EventStreamDelta:
		data["text"] = e.Text
	case runner.EventToolExecuting:
		data["machine"] = e.Machine
		data["command"] = e.Command
	case runner.EventToolCompleted:
		data["machine"] = e.Machine
		data["command"] = e.Command
		data["success"] = e.Success
	case runner.EventStreamEnd:
		if e.Stats != nil {
			data["token_stats"] = *e.Stats
		}
		data["tool_executions"] = e.Executions
	case runner.EventStreamError:
		data["error"] = e.Error
	}
	return data
}
