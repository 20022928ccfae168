package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeAcquisitionAttempt
	TypeFrameCaptured
	TypeDeviceChanged
	TypeLadderReloaded
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every capture session transition.
type SessionStateChangedEvent struct {
	SessionID  string `json:"session_id" example:"3f0a..." doc:"Capture session identifier"`
	From       string `json:"from" example:"starting" doc:"Previous state"`
	To         string `json:"to" example:"active" doc:"New state"`
	RetryCount int    `json:"retry_count" example:"0" doc:"Failed attempts since the last success"`
	ErrorKind  string `json:"error_kind,omitempty" example:"permission_denied" doc:"Error kind when entering error"`
	Error      string `json:"error,omitempty" doc:"Detailed error description"`
	Profile    string `json:"profile,omitempty" example:"hd-environment" doc:"Accepted constraint profile"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// AcquisitionAttemptEvent reports one rung of the constraint ladder.
type AcquisitionAttemptEvent struct {
	SessionID  string `json:"session_id" doc:"Capture session identifier"`
	Profile    string `json:"profile" example:"vga-environment" doc:"Constraint profile tried"`
	Index      int    `json:"index" example:"1" doc:"Position in the ladder"`
	Outcome    string `json:"outcome" example:"overconstrained" doc:"accepted or the error kind"`
	Error      string `json:"error,omitempty" doc:"Detailed error description"`
	DurationMs int64  `json:"duration_ms" example:"42" doc:"Attempt duration in milliseconds"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Attempt timestamp"`
}

// Type returns the event type identifier for AcquisitionAttemptEvent.
func (e AcquisitionAttemptEvent) Type() uint32 { return TypeAcquisitionAttempt }

// FrameCapturedEvent is published after a still was cropped and encoded.
type FrameCapturedEvent struct {
	SessionID  string `json:"session_id" doc:"Capture session identifier"`
	Width      int    `json:"width" example:"768" doc:"Cropped width in pixels"`
	Height     int    `json:"height" example:"432" doc:"Cropped height in pixels"`
	SourceSize string `json:"source_size" example:"1280x720" doc:"Live frame size"`
	Bytes      int    `json:"bytes" example:"48213" doc:"Encoded image size"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Capture timestamp"`
}

// Type returns the event type identifier for FrameCapturedEvent.
func (e FrameCapturedEvent) Type() uint32 { return TypeFrameCaptured }

// DeviceChangedEvent represents a capture device hotplug.
type DeviceChangedEvent struct {
	Action     string `json:"action" example:"add" doc:"Action type: add, remove"`
	DeviceName string `json:"device_name" example:"video0" doc:"Kernel device name"`
	DevicePath string `json:"device_path,omitempty" example:"/dev/video0" doc:"Device node"`
	Devices    int    `json:"devices" example:"1" doc:"Capture devices after re-probe"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangedEvent.
func (e DeviceChangedEvent) Type() uint32 { return TypeDeviceChanged }

// LadderReloadedEvent is published when the profiles file is reloaded.
type LadderReloadedEvent struct {
	Profiles  int    `json:"profiles" example:"6" doc:"Number of profiles now installed"`
	Error     string `json:"error,omitempty" doc:"Reload error; the previous ladder stays installed"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for LadderReloadedEvent.
func (e LadderReloadedEvent) Type() uint32 { return TypeLadderReloaded }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"capture" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
