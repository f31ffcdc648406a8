package stats

import (
	"context"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/agent/session"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type GetStatsLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Token usage with context fullness and estimated cost
func NewGetStatsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetStatsLogic {
	return &GetStatsLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *GetStatsLogic) GetStats() (*types.TokenStatsResponse, error) {
	return StatsResponse(l.svcCtx.Session.Stats(), l.svcCtx.Session.Model()), nil
}

// StatsResponse decorates raw counters with the model's pricing.
func StatsResponse(stats session.TokenStats, model string) *types.TokenStatsResponse {
	resp := &types.TokenStatsResponse{TokenStats: stats, Model: model}
	if info, err := ai.LookupModel(model); err == nil {
		resp.ContextWindow = info.ContextWindow
		resp.ContextPercent = info.ContextPercent(stats.LastInput)
		resp.EstimatedCostUSD = info.EstimateCost(stats.TotalInput, stats.TotalOutput)
	}
	return resp
}
