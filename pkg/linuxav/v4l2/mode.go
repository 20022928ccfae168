package v4l2

import "slices"

// Candidate is one frame size a pixel format offers. Rates is empty when
// the driver does not enumerate intervals for the size.
type Candidate struct {
	PixelFormat uint32
	Emulated    bool
	Size        FrameSize
	Rates       []Framerate
}

// Request is a desired mode. Zero fields place no constraint.
type Request struct {
	Width  uint32
	Height uint32
	FPS    float64
}

// Mode is a concrete configuration to open a device with. A zero size or
// rate leaves the choice to the driver.
type Mode struct {
	PixelFormat uint32
	Width       uint32
	Height      uint32
	FPS         float64
}

// InputFormat returns the ffmpeg input format name for the mode.
func (m Mode) InputFormat() string {
	return FFmpegInputFormat(m.PixelFormat)
}

// fpsTolerance absorbs NTSC-style rates such as 29.97 for a 30 request.
const fpsTolerance = 0.5

// SelectMode picks the best candidate satisfying req. Native MJPEG wins
// over raw formats so frames can be copied without re-encoding.
func SelectMode(candidates []Candidate, req Request) (Mode, bool) {
	var matches []Candidate
	for _, c := range candidates {
		if matchesSize(c, req) && matchesRate(c, req) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return Mode{}, false
	}

	slices.SortStableFunc(matches, func(a, b Candidate) int {
		return rank(a) - rank(b)
	})
	best := matches[0]
	return Mode{
		PixelFormat: best.PixelFormat,
		Width:       req.Width,
		Height:      req.Height,
		FPS:         req.FPS,
	}, true
}

func matchesSize(c Candidate, req Request) bool {
	if req.Width == 0 || req.Height == 0 {
		return true
	}
	return c.Size.Contains(req.Width, req.Height)
}

func matchesRate(c Candidate, req Request) bool {
	if req.FPS <= 0 || len(c.Rates) == 0 {
		return true
	}
	for _, r := range c.Rates {
		if r.FPS()+fpsTolerance >= req.FPS {
			return true
		}
	}
	return false
}

func rank(c Candidate) int {
	r := 3
	switch c.PixelFormat {
	case PixFmtMJPEG:
		r = 0
	case PixFmtYUYV:
		r = 1
	case PixFmtNV12:
		r = 2
	}
	if c.Emulated {
		r += 10
	}
	return r
}
