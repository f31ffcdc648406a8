package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/nexus-app/nexus/internal/agent/runner"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/markdown"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type SendMessageLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Run a full turn and return the final answer
func NewSendMessageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SendMessageLogic {
	return &SendMessageLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *SendMessageLogic) SendMessage(req *types.SendMessageRequest) (*types.SendMessageResponse, error) {
	res, err := l.svcCtx.Runner.Chat(l.ctx, req.Text)
	if err != nil {
		l.Errorf("send_message failed: %v", err)
		return nil, turnError(err)
	}

	return &types.SendMessageResponse{
		Answer:         res.Answer,
		AnswerHTML:     markdown.Render(res.Answer),
		State:          string(res.State),
		TokenStats:     res.Stats,
		ToolExecutions: res.Executions,
	}, nil
}

// turnError maps runner failures to HTTP statuses.
func turnError(err error) error {
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		return httputil.WithCode(http.StatusServiceUnavailable, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return httputil.WithCode(http.StatusRequestTimeout, err)
	case errors.Is(err, runner.ErrAPI):
		return httputil.WithCode(http.StatusBadGateway, err)
	default:
		return httputil.WithCode(http.StatusBadRequest, err)
	}
}
