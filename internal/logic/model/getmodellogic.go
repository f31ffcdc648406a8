package model

import (
	"context"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type GetModelLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Current model and the allow-list
func NewGetModelLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetModelLogic {
	return &GetModelLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *GetModelLogic) GetModel() (*types.GetModelResponse, error) {
	return &types.GetModelResponse{
		Current: l.svcCtx.Session.Model(),
		Models:  ai.Models(),
	}, nil
}
