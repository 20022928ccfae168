package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/palmcam/internal/events"
)

// sseKeepAlive keeps idle proxies from closing the stream.
const sseKeepAlive = 15 * time.Second

// pingEvent is sent on connect and when the stream has been idle.
type pingEvent struct {
	State     string `json:"state" example:"active" doc:"Session state at send time"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Send time"`
}

func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Session transitions, acquisition attempts, captured frames, device changes and ladder reloads",
		Tags:        []string{"events"},
	}, map[string]any{
		"ping":                pingEvent{},
		"session-state":       events.SessionStateChangedEvent{},
		"acquisition-attempt": events.AcquisitionAttemptEvent{},
		"frame-captured":      events.FrameCapturedEvent{},
		"device-changed":      events.DeviceChangedEvent{},
		"ladder-reloaded":     events.LadderReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribe := events.ForwardSession(s.eventBus, eventCh)
		defer unsubscribe()

		if err := send.Data(s.ping()); err != nil {
			return
		}

		keepAlive := time.NewTicker(sseKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				if err := send.Data(s.ping()); err != nil {
					return
				}
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}

func (s *Server) ping() pingEvent {
	return pingEvent{
		State:     string(s.controller.Diagnostics().State),
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
