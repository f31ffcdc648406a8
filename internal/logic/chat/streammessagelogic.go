package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nexus-app/nexus/internal/config"
	"github.com/nexus-app/nexus/internal/crashlog"
	"github.com/nexus-app/nexus/internal/logging"
	"github.com/nexus-app/nexus/internal/realtime"
	"github.com/nexus-app/nexus/internal/svc"
	"github.com/nexus-app/nexus/internal/types"
)

type StreamMessageLogic struct {
	logging.ContextLogger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Start a streaming turn whose events are broadcast over /ws
func NewStreamMessageLogic(ctx context.Context, svcCtx *svc.ServiceContext) *StreamMessageLogic {
	return &StreamMessageLogic{
		ContextLogger: logging.WithContext(ctx),
		ctx:           ctx,
		svcCtx:        svcCtx,
	}
}

func (l *StreamMessageLogic) StreamMessage(req *types.SendMessageRequest) (*types.StreamMessageResponse, error) {
	id, err := StartStream(l.svcCtx, req.Text)
	if err != nil {
		return nil, turnError(err)
	}
	l.Debugf("stream %s started", id)
	return &types.StreamMessageResponse{RequestID: id}, nil
}

// StartStream validates text, then runs the turn in the background under
// the server lifetime. Events carry the returned request id. Configuration
// errors are reported here, before anything is started.
func StartStream(svcCtx *svc.ServiceContext, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("message must not be empty")
	}
	if !svcCtx.Runner.Ready() {
		return "", config.ErrMissingCredential
	}

	id := uuid.New().String()
	ctx := logging.ContextWithRequestID(svcCtx.Lifetime(), id[:8])
	sink := realtime.NewSink(svcCtx.Hub, id)
	crashlog.Go("stream", map[string]string{"request_id": id}, func() {
		if _, err := svcCtx.Runner.Run(ctx, text, sink); err != nil {
			logging.WithContext(ctx).Errorf("streaming turn failed: %v", err)
		}
	})
	return id, nil
}

// RegisterWSHandler lets websocket clients start turns with
// {"type":"chat","data":{"text":"..."}}.
func RegisterWSHandler(svcCtx *svc.ServiceContext) {
	svcCtx.Hub.Handle("chat", func(c *realtime.Client, msg *realtime.Message) {
		text, _ := msg.Data["text"].(string)
		id, err := StartStream(svcCtx, text)
		if c.IsClosed() {
			// the turn still runs; its events reach the other clients
			return
		}
		if err != nil {
			_ = c.SendMessage(realtime.NewMessage("error", map[string]interface{}{"error": err.Error()}))
			return
		}
		_ = c.SendMessage(realtime.NewMessage("chat-accepted", map[string]interface{}{"request_id": id}))
	})
}
