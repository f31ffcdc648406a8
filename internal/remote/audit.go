package remote

import (
	"context"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
)

// Source tags where an execution came from in the audit log.
type Source string

const (
	SourceTool   Source = "tool"
	SourceDirect Source = "direct"
)

// Recorder persists execution results.
type Recorder interface {
	RecordExecution(ctx context.Context, res Result, source Source) error
}

type auditedExecutor struct {
	next     Executor
	recorder Recorder
	source   Source
}

// Audited wraps next so every result is also handed to recorder. Recording
// failures are logged and never change the result.
func Audited(next Executor, recorder Recorder, source Source) Executor {
	if recorder == nil {
		return next
	}
	return &auditedExecutor{next: next, recorder: recorder, source: source}
}

func (a *auditedExecutor) Execute(ctx context.Context, m machine.Descriptor, command string) Result {
	res := a.next.Execute(ctx, m, command)
	// Record even when the caller's context has been cancelled.
	if err := a.recorder.RecordExecution(context.WithoutCancel(ctx), res, a.source); err != nil {
		logging.Errorf("[Remote] failed to record execution on %s: %v", m.Name, err)
	}
	return res
}
