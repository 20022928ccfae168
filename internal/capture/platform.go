package capture

import (
	"context"
	"image"
)

// Platform is the hardware capture API the subsystem drives.
//
// Implementations classify their failures with *Error so the negotiator can
// tell a rejected configuration (KindOverconstrained) from a refused
// permission (KindPermissionDenied). Unclassified errors advance the ladder.
type Platform interface {
	// CaptureSupported reports whether a capture API exists at all.
	CaptureSupported() bool

	// Devices enumerates capture hardware. It must not open streams.
	Devices(ctx context.Context) ([]DeviceInfo, error)

	// Permission reports whether the process may open capture devices.
	Permission(ctx context.Context) Permission

	// Open requests a stream matching the profile.
	Open(ctx context.Context, profile ConstraintProfile) (Stream, error)
}

// Stream is a live hardware stream and its tracks.
type Stream interface {
	ID() string
	Tracks() []Track

	// WaitGeometry blocks until the pipeline reports a decoded frame size
	// or ctx ends. A zero size is never returned with a nil error.
	WaitGeometry(ctx context.Context) (Resolution, error)

	// Frame returns the most recent frame. The image must not alias
	// buffers the stream will overwrite.
	Frame() (image.Image, error)
}

// Track is one hardware resource inside a stream.
type Track interface {
	ID() string
	Kind() string
	Ready() bool
	Stop()
}

// usableTracks counts tracks in a live state.
func usableTracks(s Stream) int {
	n := 0
	for _, t := range s.Tracks() {
		if t != nil && t.Ready() {
			n++
		}
	}
	return n
}
