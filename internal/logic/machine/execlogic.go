package machine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/markdown"
	"github.com/nexus-app/nexus/internal/remote"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type ExecLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Run a command directly, without the model
func NewExecLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExecLogic {
	return &ExecLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *ExecLogic) Exec(req *types.ExecRequest) (*types.ExecResponse, error) {
	res, err := Execute(l.ctx, l.svcCtx, req.Machine, req.Command)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		l.Warnf("command on %s failed (exit %d)", res.MachineName, res.ExitCode)
	}
	return &types.ExecResponse{Result: res, OutputHTML: markdown.RenderExecution(res)}, nil
}

// Execute validates the target and runs command on it. Precondition
// failures are returned as errors and nothing is spawned; command failures
// are reported in the result.
func Execute(ctx context.Context, svcCtx *svc.ServiceContext, name, command string) (remote.Result, error) {
	if strings.TrimSpace(command) == "" {
		return remote.Result{}, errors.New("command is required")
	}
	m, ok := svcCtx.Machines.Get(name)
	if !ok {
		return remote.Result{}, httputil.WithCode(http.StatusNotFound,
			fmt.Errorf("%w: %s", machine.ErrUnknownMachine, name))
	}
	if err := remote.CheckTarget(m); err != nil {
		return remote.Result{}, err
	}
	return svcCtx.Direct.Execute(ctx, m, command), nil
}
