package model

import (
	"context"
	"strings"

	"github.com/nexus-app/nexus/internal/agent/ai"
	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type SetModelLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Switch the model used by subsequent turns
func NewSetModelLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SetModelLogic {
	return &SetModelLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *SetModelLogic) SetModel(req *types.SetModelRequest) (*types.SetModelResponse, error) {
	info, err := ai.LookupModel(strings.TrimSpace(req.Model))
	if err != nil {
		return nil, err
	}
	l.svcCtx.Session.SetModel(info.ID)
	if err := l.svcCtx.UpdateConfig(func(c *config.Config) { c.Model = info.ID }); err != nil {
		// the switch still applies to this process
		l.Warnf("could not persist model choice: %v", err)
	}
	l.Infof("model set to %s", info.ID)
	return &types.SetModelResponse{Model: info}, nil
}
