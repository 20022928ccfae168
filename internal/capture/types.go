package capture

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a capture session.
type State string

// Session states.
const (
	StateInactive State = "inactive" // No hardware held
	StateStarting State = "starting" // Acquisition in flight
	StateActive   State = "active"   // Stream installed, geometry valid
	StateError    State = "error"    // Last attempt failed, see LastError
)

// Facing is the requested camera direction.
type Facing string

// Facing directions. FacingAny places no restriction on the device.
const (
	FacingAny         Facing = ""
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Permission is a tri-state access bit; Unknown until the platform can tell.
type Permission string

// Permission values.
const (
	PermissionUnknown Permission = "unknown"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Resolution is a frame size in pixels.
type Resolution struct {
	Width  int `json:"width" toml:"width"`
	Height int `json:"height" toml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// ConstraintProfile is one rung of the fallback ladder.
// Zero-valued fields place no constraint on the platform.
type ConstraintProfile struct {
	Name       string      `json:"name" toml:"name"`
	Resolution *Resolution `json:"resolution,omitempty" toml:"resolution,omitempty"`
	Facing     Facing      `json:"facing,omitempty" toml:"facing,omitempty"`
	FrameRate  float64     `json:"frame_rate,omitempty" toml:"frame_rate,omitempty"`
}

func (p ConstraintProfile) String() string {
	if p.Name != "" {
		return p.Name
	}
	res := "any"
	if p.Resolution != nil {
		res = p.Resolution.String()
	}
	facing := string(p.Facing)
	if facing == "" {
		facing = "any"
	}
	return fmt.Sprintf("%s/%s", res, facing)
}

// DeviceInfo describes one enumerable capture device.
type DeviceInfo struct {
	ID   string `json:"id"`
	Path string `json:"path,omitempty"`
	Name string `json:"name"`
}

// DeviceCapabilities is an immutable snapshot of what the runtime can do.
type DeviceCapabilities struct {
	HasCaptureDevice bool         `json:"has_capture_device"`
	HasPermission    Permission   `json:"has_permission"`
	IsSecureContext  bool         `json:"is_secure_context"`
	HasCaptureAPI    bool         `json:"has_capture_api"`
	Devices          []DeviceInfo `json:"devices,omitempty"`
	ProbedAt         time.Time    `json:"probed_at"`
}

// Rect is an integer pixel rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CapturedFrame is an encoded still owned by the caller.
type CapturedFrame struct {
	EncodedImage []byte    `json:"-"`
	ContentType  string    `json:"content_type"`
	CropRect     Rect      `json:"crop_rect"`
	SourceWidth  int       `json:"source_width"`
	SourceHeight int       `json:"source_height"`
	CapturedAt   time.Time `json:"captured_at"`
}

// Diagnostics is the troubleshooting snapshot shown to the user.
type Diagnostics struct {
	SessionID     string             `json:"session_id,omitempty"`
	State         State              `json:"state"`
	RetryCount    int                `json:"retry_count"`
	LastError     ErrorKind          `json:"last_error,omitempty"`
	LastErrorText string             `json:"last_error_text,omitempty"`
	ActiveProfile string             `json:"active_profile,omitempty"`
	Geometry      *Resolution        `json:"geometry,omitempty"`
	ZoomLevel     float64            `json:"zoom_level"`
	NextTimeout   time.Duration      `json:"next_timeout"`
	Capabilities  DeviceCapabilities `json:"capabilities"`
}
