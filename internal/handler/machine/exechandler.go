package machine

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/machine"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

// Run a command on a machine directly
func ExecHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ExecRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := machine.NewExecLogic(r.Context(), svcCtx)
		resp, err := l.Exec(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
