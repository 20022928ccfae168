package v4l2

import "errors"

// ErrUnsupported is returned on systems without V4L2.
var ErrUnsupported = errors.New("v4l2: not supported on this platform")

// DeviceInfo contains information about a V4L2 device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DeviceID   string // Stable identifier (from /dev/v4l/by-id/ or synthetic)
	Caps       uint32
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	FormatName  string
	Emulated    bool
}

// Resolution represents a supported video resolution.
type Resolution struct {
	Width  uint32
	Height uint32
}

// FrameSize is one VIDIOC_ENUM_FRAMESIZES entry. Discrete sizes have
// Min == Max and zero steps.
type FrameSize struct {
	MinWidth, MaxWidth, StepWidth    uint32
	MinHeight, MaxHeight, StepHeight uint32
}

// Discrete reports whether the entry names a single size.
func (f FrameSize) Discrete() bool {
	return f.MinWidth == f.MaxWidth && f.MinHeight == f.MaxHeight
}

// Contains reports whether w×h is inside the range and on its step grid.
func (f FrameSize) Contains(w, h uint32) bool {
	if w < f.MinWidth || w > f.MaxWidth || h < f.MinHeight || h > f.MaxHeight {
		return false
	}
	if f.StepWidth > 1 && (w-f.MinWidth)%f.StepWidth != 0 {
		return false
	}
	if f.StepHeight > 1 && (h-f.MinHeight)%f.StepHeight != 0 {
		return false
	}
	return true
}

// Framerate represents a supported frame interval as a fraction of seconds.
type Framerate struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the framerate as frames per second.
func (f Framerate) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// Common pixel formats.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtNV12  = 0x3231564E // 'NV12'
)

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	return string([]byte{
		byte(format),
		byte(format >> 8),
		byte(format >> 16),
		byte(format >> 24),
	})
}

// FFmpegInputFormat returns ffmpeg's -input_format name for a pixel format,
// or "" when ffmpeg should let the driver choose.
func FFmpegInputFormat(pixelFormat uint32) string {
	switch pixelFormat {
	case PixFmtMJPEG:
		return "mjpeg"
	case PixFmtYUYV:
		return "yuyv422"
	case PixFmtNV12:
		return "nv12"
	case PixFmtH264:
		return "h264"
	default:
		return ""
	}
}
