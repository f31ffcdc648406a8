package execution

import (
	"context"
	"errors"
	"net/http"

	"github.com/nexus-app/nexus/internal/db"
	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type ListExecutionsLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Recent remote executions, newest first
func NewListExecutionsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListExecutionsLogic {
	return &ListExecutionsLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *ListExecutionsLogic) ListExecutions(req *types.ListExecutionsRequest) (*types.ListExecutionsResponse, error) {
	if l.svcCtx.DB == nil {
		return nil, httputil.WithCode(http.StatusServiceUnavailable, errors.New("execution log is disabled"))
	}
	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = db.DefaultListLimit
	}
	list, err := l.svcCtx.DB.ListExecutions(l.ctx, limit)
	if err != nil {
		l.Errorf("list executions: %v", err)
		return nil, httputil.WithCode(http.StatusInternalServerError, err)
	}
	return &types.ListExecutionsResponse{Executions: list}, nil
}
