package stats

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/stats"
	"github.com/nexus-app/nexus/internal/svc"
)

// Zero every token counter
func ResetCostHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := stats.NewResetCostLogic(r.Context(), svcCtx)
		resp, err := l.ResetCost()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
