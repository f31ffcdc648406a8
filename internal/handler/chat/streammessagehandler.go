package chat

import (
	"net/http"

	"github.com/nexus-app/nexus/internal/httputil"
	"github.com/nexus-app/nexus/internal/logic/chat"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

// Start a streaming turn; events arrive over /ws
func StreamMessageHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SendMessageRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		l := chat.NewStreamMessageLogic(r.Context(), svcCtx)
		resp, err := l.StreamMessage(&req)
		if err != nil {
			httputil.Error(w, err)
		} else {
			httputil.OkJSON(w, resp)
		}
	}
}
