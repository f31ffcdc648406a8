package machine

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/machine"
	"github.com/nexus-app/nexus/internal/svc"
)

// Probe every machine
func MachineStatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := machine.NewMachineStatusLogic(r.Context(), svcCtx)
		resp, err := l.MachineStatus()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
