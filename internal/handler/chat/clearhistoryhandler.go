package chat

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/chat"
	"github.com/nexus-app/nexus/internal/svc"
)

// Empty the conversation
func ClearHistoryHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := chat.NewClearHistoryLogic(r.Context(), svcCtx)
		resp, err := l.ClearHistory()
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
