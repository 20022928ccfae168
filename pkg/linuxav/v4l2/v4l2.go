// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for capture device enumeration and mode negotiation.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm). On other systems the
// enumeration functions report ErrUnsupported.
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Mode Negotiation
//
// List what a device can deliver and pick the mode closest to a request:
//
//	candidates, _ := v4l2.ListCandidates("/dev/video0")
//	mode, ok := v4l2.SelectMode(candidates, v4l2.Request{Width: 1280, Height: 720, FPS: 30})
//	if ok {
//	    fmt.Println(mode.InputFormat(), mode.Width, mode.Height)
//	}
package v4l2
