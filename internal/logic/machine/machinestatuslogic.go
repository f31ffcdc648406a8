package machine

import (
	"context"

	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type MachineStatusLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Probe every machine now
func NewMachineStatusLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MachineStatusLogic {
	return &MachineStatusLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *MachineStatusLogic) MachineStatus() (*types.MachineStatusResponse, error) {
	statuses := l.svcCtx.Monitor.Refresh(l.ctx)
	return &types.MachineStatusResponse{Machines: statuses}, nil
}
