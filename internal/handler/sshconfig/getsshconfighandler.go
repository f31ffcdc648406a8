package sshconfig

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/sshconfig"
	"github.com/nexus-app/nexus/internal/svc"
)

// Machine table and ssh settings
func GetSSHConfigHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := sshconfig.NewGetSSHConfigLogic(r.Context(), svcCtx)
		resp, err := l.GetSSHConfig()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
