package api

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/palmcam/internal/api/models"
	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/logging"
)

// diagnosticModules are the log sources shown next to a capture failure.
var diagnosticModules = []string{"capture", "platform", "devices", "ffmpeg"}

func (s *Server) registerCaptureRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "capture-start",
		Method:      http.MethodPost,
		Path:        "/api/capture/start",
		Summary:     "Start capture",
		Description: "Acquire the camera. Blocks until the session is active or has failed; a failure is reported in the returned state, not as an HTTP error.",
		Tags:        []string{"capture"},
		Errors:      []int{409, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if err := s.controller.Start(ctx); err != nil {
			return nil, toHTTPError(err)
		}
		return s.sessionResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-stop",
		Method:      http.MethodPost,
		Path:        "/api/capture/stop",
		Summary:     "Stop capture",
		Description: "Release the camera. Safe to call in any state.",
		Tags:        []string{"capture"},
	}, func(_ context.Context, _ *struct{}) (*models.SessionResponse, error) {
		s.controller.Stop()
		return s.sessionResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-retry",
		Method:      http.MethodPost,
		Path:        "/api/capture/retry",
		Summary:     "Retry capture",
		Description: "Retry acquisition after a failure with a longer timeout.",
		Tags:        []string{"capture"},
		Errors:      []int{409, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.SessionResponse, error) {
		if err := s.controller.Retry(ctx); err != nil {
			return nil, toHTTPError(err)
		}
		return s.sessionResponse(), nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-frame",
		Method:      http.MethodPost,
		Path:        "/api/capture/frame",
		Summary:     "Capture frame",
		Description: "Grab one center-cropped JPEG from the active session.",
		Tags:        []string{"capture"},
		Errors:      []int{409},
	}, func(_ context.Context, _ *struct{}) (*models.FrameResponse, error) {
		frame, err := s.controller.Capture()
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &models.FrameResponse{
			Body: models.FrameData{
				Image:        base64.StdEncoding.EncodeToString(frame.EncodedImage),
				ContentType:  frame.ContentType,
				CropRect:     frame.CropRect,
				SourceWidth:  frame.SourceWidth,
				SourceHeight: frame.SourceHeight,
				CapturedAt:   frame.CapturedAt,
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-zoom",
		Method:      http.MethodPut,
		Path:        "/api/capture/zoom",
		Summary:     "Set zoom",
		Description: "Set the preview zoom level. The stream resolution is unchanged.",
		Tags:        []string{"capture"},
		Errors:      []int{422},
	}, func(_ context.Context, input *models.ZoomRequest) (*models.ZoomResponse, error) {
		level, err := s.controller.SetZoom(input.Body.Level)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		resp := &models.ZoomResponse{}
		resp.Body.Level = level
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-diagnostics",
		Method:      http.MethodGet,
		Path:        "/api/capture/diagnostics",
		Summary:     "Diagnostics",
		Description: "Session state, device capabilities and recent capture log lines.",
		Tags:        []string{"capture"},
	}, func(ctx context.Context, input *models.DiagnosticsRequest) (*models.DiagnosticsResponse, error) {
		if input.Refresh {
			s.controller.Reprobe(ctx)
		}
		return &models.DiagnosticsResponse{
			Body: models.DiagnosticsData{
				Diagnostics: s.controller.Diagnostics(),
				Log:         captureLog(input.Lines),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "capture-profiles",
		Method:      http.MethodGet,
		Path:        "/api/capture/profiles",
		Summary:     "Constraint ladder",
		Description: "Profiles tried in order on the next acquisition.",
		Tags:        []string{"capture"},
	}, func(_ context.Context, _ *struct{}) (*models.ProfilesResponse, error) {
		ladder := s.controller.Ladder()
		return &models.ProfilesResponse{
			Body: models.ProfilesData{Profiles: ladder, Count: len(ladder)},
		}, nil
	})
}

func (s *Server) sessionResponse() *models.SessionResponse {
	return &models.SessionResponse{Body: models.NewSessionStatus(s.controller.Diagnostics())}
}

// captureLog returns the last n buffered lines from capture modules.
func captureLog(n int) []string {
	lines := []string{}
	buffer := logging.GetBuffer()
	if buffer == nil || n <= 0 {
		return lines
	}
	for _, entry := range buffer.Filter(n, logging.FromModules(diagnosticModules...)) {
		lines = append(lines, logging.FormatLogLine(entry))
	}
	return lines
}

// toHTTPError maps controller usage errors onto status codes.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, capture.ErrSessionBusy), errors.Is(err, capture.ErrInvalidTransition):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, capture.ErrClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("request ended before acquisition resolved", err)
	}
	if kind := capture.KindOf(err); kind == capture.KindNotReady {
		return huma.Error409Conflict(kind.Message(), err)
	}
	return huma.Error500InternalServerError("capture failed", err)
}
