package execution

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/db"
	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/execution"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

// Recent remote executions
func ListExecutionsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := types.ListExecutionsRequest{
			Limit: httputil.QueryInt(r, "limit", db.DefaultListLimit),
		}

		l := execution.NewListExecutionsLogic(r.Context(), svcCtx)
		resp, err := l.ListExecutions(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
