package chat

import (
	"context"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type ClearHistoryLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Empty the conversation; cumulative cost survives
func NewClearHistoryLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ClearHistoryLogic {
	return &ClearHistoryLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *ClearHistoryLogic) ClearHistory() (*types.ClearHistoryResponse, error) {
	stats := l.svcCtx.Session.Clear()
	l.Infof("conversation cleared")
	return &types.ClearHistoryResponse{Cleared: true, TokenStats: stats}, nil
}
