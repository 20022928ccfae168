package capture

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the subsystem resolves locally.
type ErrorKind string

// Error kinds.
const (
	KindNone                 ErrorKind = ""
	KindInsecureContext      ErrorKind = "insecure_context"
	KindAPIUnsupported       ErrorKind = "api_unsupported"
	KindNoDeviceFound        ErrorKind = "no_device_found"
	KindPermissionDenied     ErrorKind = "permission_denied"
	KindOverconstrained      ErrorKind = "overconstrained"
	KindAcquisitionTimeout   ErrorKind = "acquisition_timeout"
	KindVideoPipelineFailure ErrorKind = "video_pipeline_failure"
	KindNotReady             ErrorKind = "not_ready"
)

// Sentinels for errors.Is matching against *Error values of the same kind.
var (
	ErrInsecureContext      = &Error{Kind: KindInsecureContext}
	ErrAPIUnsupported       = &Error{Kind: KindAPIUnsupported}
	ErrNoDeviceFound        = &Error{Kind: KindNoDeviceFound}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrOverconstrained      = &Error{Kind: KindOverconstrained}
	ErrAcquisitionTimeout   = &Error{Kind: KindAcquisitionTimeout}
	ErrVideoPipelineFailure = &Error{Kind: KindVideoPipelineFailure}
	ErrNotReady             = &Error{Kind: KindNotReady}
)

// Usage errors returned by the controller. These never reach LastError.
var (
	ErrSessionBusy       = errors.New("another capture session is starting or active")
	ErrClosed            = errors.New("capture controller is closed")
	ErrInvalidTransition = errors.New("operation not valid in current state")
	ErrEmptyLadder       = errors.New("constraint ladder is empty")
)

// Error is a classified capture failure.
type Error struct {
	Kind    ErrorKind
	Op      string // "probe", "acquire", "start", "capture", ...
	Profile string // ladder rung that produced the error, if any
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.Message()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Profile != "" {
		msg += " (profile " + e.Profile + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds a classified error wrapping cause.
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain.
// Unclassified errors report KindVideoPipelineFailure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindVideoPipelineFailure
}

// Message returns the human-readable text the UI shows for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindNone:
		return "no error"
	case KindInsecureContext:
		return "camera access requires a secure connection"
	case KindAPIUnsupported:
		return "this device does not support camera capture"
	case KindNoDeviceFound:
		return "no camera was found; connect a camera and retry"
	case KindPermissionDenied:
		return "camera permission was denied; allow camera access and retry"
	case KindOverconstrained:
		return "the camera rejected every requested configuration"
	case KindAcquisitionTimeout:
		return "the camera took too long to start"
	case KindVideoPipelineFailure:
		return "the camera started but produced no usable video"
	case KindNotReady:
		return "the camera is not ready"
	default:
		return fmt.Sprintf("capture error %q", string(k))
	}
}

// Fatal reports kinds for which retrying without outside change cannot help.
func (k ErrorKind) Fatal() bool {
	return k == KindInsecureContext || k == KindAPIUnsupported
}
