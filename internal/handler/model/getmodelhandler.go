package model

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/model"
	"github.com/nexus-app/nexus/internal/svc"
)

// Current model and the allow-list
func GetModelHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := model.NewGetModelLogic(r.Context(), svcCtx)
		resp, err := l.GetModel()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
