package stats

import (
	"context"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type ResetCostLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Zero every token counter
func NewResetCostLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ResetCostLogic {
	return &ResetCostLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *ResetCostLogic) ResetCost() (*types.TokenStatsResponse, error) {
	stats := l.svcCtx.Session.ResetCost()
	l.Infof("token counters reset")
	return StatsResponse(stats, l.svcCtx.Session.Model()), nil
}
