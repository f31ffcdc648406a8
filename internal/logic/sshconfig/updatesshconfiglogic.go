package sshconfig

import (
	"context"
	"errors"
	"net/http"

	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/machine"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type UpdateSSHConfigLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Change a machine's host or enabled flag
func NewUpdateSSHConfigLogic(ctx context.Context, svcCtx *svc.ServiceContext) *UpdateSSHConfigLogic {
	return &UpdateSSHConfigLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *UpdateSSHConfigLogic) UpdateSSHConfig(req *types.UpdateSSHConfigRequest) (*types.UpdateSSHConfigResponse, error) {
	if req.Host == nil && req.Enabled == nil {
		return nil, errors.New("nothing to update: set host and/or enabled")
	}
	d, err := l.svcCtx.Machines.Update(req.Machine, req.Host, req.Enabled)
	if err != nil {
		if errors.Is(err, machine.ErrUnknownMachine) {
			return nil, httputil.WithCode(http.StatusNotFound, err)
		}
		return nil, err
	}

	saved := true
	if err := l.svcCtx.UpdateConfig(func(c *config.Config) { c.Machines = l.svcCtx.Machines.List() }); err != nil {
		l.Errorf("could not persist machine table: %v", err)
		saved = false
	}
	l.Infof("machine %s updated: host=%s enabled=%v", d.Name, d.Host, d.Enabled)
	return &types.UpdateSSHConfigResponse{Machine: d, Saved: saved}, nil
}
