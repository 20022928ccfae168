package ffmpeg

// Params describes one ffmpeg capture pipeline that writes MJPEG frames to
// stdout.
type Params struct {
	// Binary is the ffmpeg executable. Empty means "ffmpeg" from PATH.
	Binary string

	// Input configuration
	DevicePath  string // /dev/video0
	InputFormat string // mjpeg, yuyv422. Empty lets the driver choose
	Width       int    // 0 = driver default
	Height      int    // 0 = driver default
	FPS         float64

	// TestSource replaces the device with a lavfi test pattern.
	TestSource bool

	// Quality is the MJPEG qscale (2 best .. 31 worst). 0 uses the default
	Quality int

	// LogLevel is passed as -loglevel level+<LogLevel>. Empty means warning
	LogLevel string

	// ForceEncode re-encodes native MJPEG. Some UVC cameras emit frames
	// without Huffman tables that strict decoders reject.
	ForceEncode bool

	Options []OptionType
}

// Resolution returns "WxH" or "" when the size is unconstrained.
func (p *Params) Resolution() string {
	if p.Width <= 0 || p.Height <= 0 {
		return ""
	}
	return itoa(p.Width) + "x" + itoa(p.Height)
}

// Passthrough reports whether frames can be copied without re-encoding.
func (p *Params) Passthrough() bool {
	return !p.TestSource && !p.ForceEncode && p.InputFormat == "mjpeg"
}
