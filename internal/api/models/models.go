// Package models holds the request and response shapes of the HTTP API.
package models

import (
	"time"

	"github.com/smazurov/palmcam/internal/capture"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2024-12-15 14:30" doc:"Build timestamp"`
	Modified  bool   `json:"modified" example:"false" doc:"Built from a dirty tree"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// SessionStatus is the session summary returned by every lifecycle call.
type SessionStatus struct {
	SessionID    string              `json:"session_id,omitempty" example:"3f0a..." doc:"Capture session identifier"`
	State        capture.State       `json:"state" enum:"inactive,starting,active,error" example:"active" doc:"Session state"`
	RetryCount   int                 `json:"retry_count" example:"0" doc:"Failed attempts since the last success"`
	ErrorKind    capture.ErrorKind   `json:"error_kind,omitempty" example:"permission_denied" doc:"Why the session is in error"`
	ErrorMessage string              `json:"error_message,omitempty" doc:"Human-readable error"`
	Profile      string              `json:"profile,omitempty" example:"hd-environment" doc:"Accepted constraint profile"`
	Geometry     *capture.Resolution `json:"geometry,omitempty" doc:"Live frame size"`
	ZoomLevel    float64             `json:"zoom_level" example:"1" doc:"Preview zoom level"`
	Fatal        bool                `json:"fatal,omitempty" doc:"Retrying cannot help without outside change"`
}

// NewSessionStatus summarizes a diagnostics snapshot.
func NewSessionStatus(d capture.Diagnostics) SessionStatus {
	return SessionStatus{
		SessionID:    d.SessionID,
		State:        d.State,
		RetryCount:   d.RetryCount,
		ErrorKind:    d.LastError,
		ErrorMessage: d.LastErrorText,
		Profile:      d.ActiveProfile,
		Geometry:     d.Geometry,
		ZoomLevel:    d.ZoomLevel,
		Fatal:        d.LastError.Fatal(),
	}
}

type SessionResponse struct {
	Body SessionStatus
}

// FrameData is one cropped still.
type FrameData struct {
	Image        string       `json:"image" doc:"Base64-encoded image"`
	ContentType  string       `json:"content_type" example:"image/jpeg" doc:"Image media type"`
	CropRect     capture.Rect `json:"crop_rect" doc:"Crop rectangle in source pixels"`
	SourceWidth  int          `json:"source_width" example:"1280" doc:"Live frame width"`
	SourceHeight int          `json:"source_height" example:"720" doc:"Live frame height"`
	CapturedAt   time.Time    `json:"captured_at" doc:"Capture time"`
}

type FrameResponse struct {
	Body FrameData
}

type ZoomRequest struct {
	Body struct {
		Level float64 `json:"level" minimum:"0" example:"2" doc:"Requested zoom level, clamped to the configured range"`
	}
}

type ZoomResponse struct {
	Body struct {
		Level float64 `json:"level" example:"2" doc:"Zoom level in effect"`
	}
}

type DiagnosticsRequest struct {
	Refresh bool `query:"refresh" doc:"Re-probe devices before answering"`
	Lines   int  `query:"lines" minimum:"0" maximum:"500" default:"50" doc:"Recent capture log lines to include"`
}

// DiagnosticsData is the troubleshooting view.
type DiagnosticsData struct {
	Diagnostics capture.Diagnostics `json:"diagnostics"`
	Log         []string            `json:"log" doc:"Recent capture and platform log lines"`
}

type DiagnosticsResponse struct {
	Body DiagnosticsData
}

type ProfilesData struct {
	Profiles []capture.ConstraintProfile `json:"profiles" doc:"Constraint ladder, most specific first"`
	Count    int                         `json:"count" example:"6" doc:"Number of profiles"`
}

type ProfilesResponse struct {
	Body ProfilesData
}
