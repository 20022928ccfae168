package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/palmcam/internal/events"
	"github.com/smazurov/palmcam/internal/logging"
)

type logStreamRequest struct {
	Module  string `query:"module" example:"capture" doc:"Only stream entries from this module"`
	History int    `query:"history" minimum:"0" default:"200" doc:"Buffered entries to replay first; 0 replays all"`
}

type logLevelRequest struct {
	Body struct {
		Module string `json:"module" minLength:"1" example:"capture" doc:"Logger module"`
		Level  string `json:"level" enum:"debug,info,warn,error" example:"debug" doc:"New level"`
	}
}

type logLevelResponse struct {
	Body struct {
		Module string `json:"module" example:"capture"`
		Level  string `json:"level" example:"debug"`
	}
}

// registerLogRoutes registers log streaming and runtime level control.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "logs-set-level",
		Method:      http.MethodPut,
		Path:        "/api/logs/level",
		Summary:     "Set Log Level",
		Description: "Change one module's log level until the next restart or config reload",
		Tags:        []string{"logs"},
	}, func(_ context.Context, input *logLevelRequest) (*logLevelResponse, error) {
		if err := logging.SetModuleLevel(input.Body.Module, input.Body.Level); err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		resp := &logLevelResponse{}
		resp.Body.Module = input.Body.Module
		resp.Body.Level = input.Body.Level
		return resp, nil
	})

	sse.Register(s.api, huma.Operation{
		OperationID: "logs-stream",
		Method:      http.MethodGet,
		Path:        "/api/logs/stream",
		Summary:     "Log Stream",
		Description: "Real-time log streaming via Server-Sent Events. Sends historical logs first, then streams new logs.",
		Tags:        []string{"logs"},
	}, map[string]any{
		"message": events.LogEntryEvent{},
	}, func(ctx context.Context, input *logStreamRequest, send sse.Sender) {
		// Replay buffered history first
		var keep func(logging.LogEntry) bool
		if input.Module != "" {
			keep = logging.FromModules(input.Module)
		}
		if buffer := logging.GetBuffer(); buffer != nil {
			for _, entry := range buffer.Filter(input.History, keep) {
				if err := send.Data(events.NewLogEntryEvent(entry)); err != nil {
					return
				}
			}
		}

		eventCh := make(chan any, 100)
		unsubscribe := events.SubscribeToChannel[events.LogEntryEvent](s.eventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if e, ok := event.(events.LogEntryEvent); ok && input.Module != "" && e.Module != input.Module {
					continue
				}
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
