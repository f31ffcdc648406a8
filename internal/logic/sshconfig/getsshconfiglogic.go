package sshconfig

import (
	"context"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type GetSSHConfigLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Machine table and ssh settings
func NewGetSSHConfigLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetSSHConfigLogic {
	return &GetSSHConfigLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *GetSSHConfigLogic) GetSSHConfig() (*types.SSHConfigResponse, error) {
	return &types.SSHConfigResponse{
		SSH:      l.svcCtx.SSHConfig(),
		Machines: l.svcCtx.Machines.List(),
	}, nil
}
