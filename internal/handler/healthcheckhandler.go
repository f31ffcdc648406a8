package handler

import (
	"net/http"
	"time"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.HealthResponse{
			Status:    "healthy",
			Version:   svcCtx.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Ready:     svcCtx.Runner.Ready(),
		})
	}
}
