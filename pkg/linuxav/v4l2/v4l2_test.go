package v4l2

import (
	"math"
	"testing"
)

func TestFormatFourCC(t *testing.T) {
	tests := []struct {
		format   uint32
		expected string
	}{
		{PixFmtYUYV, "YUYV"},
		{PixFmtMJPEG, "MJPG"},
		{PixFmtH264, "H264"},
		{PixFmtNV12, "NV12"},
	}

	for _, tt := range tests {
		if got := FormatFourCC(tt.format); got != tt.expected {
			t.Errorf("FormatFourCC(0x%08x) = %q, want %q", tt.format, got, tt.expected)
		}
	}
}

func TestFramerateFPS(t *testing.T) {
	tests := []struct {
		name     string
		rate     Framerate
		expected float64
	}{
		{"30 fps", Framerate{1, 30}, 30},
		{"NTSC", Framerate{1001, 30000}, 29.97},
		{"zero numerator", Framerate{0, 30}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rate.FPS(); math.Abs(got-tt.expected) > 0.01 {
				t.Errorf("Expected %.2f, got %.2f", tt.expected, got)
			}
		})
	}
}

func TestFrameSizeContains(t *testing.T) {
	discrete := FrameSize{MinWidth: 640, MaxWidth: 640, MinHeight: 480, MaxHeight: 480}
	stepwise := FrameSize{MinWidth: 160, MaxWidth: 1920, StepWidth: 16, MinHeight: 120, MaxHeight: 1080, StepHeight: 8}

	if !discrete.Discrete() {
		t.Error("Expected discrete size")
	}
	if stepwise.Discrete() {
		t.Error("Expected stepwise size to not be discrete")
	}

	tests := []struct {
		name     string
		size     FrameSize
		w, h     uint32
		expected bool
	}{
		{"discrete match", discrete, 640, 480, true},
		{"discrete mismatch", discrete, 1280, 720, false},
		{"stepwise on grid", stepwise, 1280, 720, true},
		{"stepwise off grid", stepwise, 1281, 720, false},
		{"stepwise too large", stepwise, 3840, 2160, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.size.Contains(tt.w, tt.h); got != tt.expected {
				t.Errorf("Contains(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.expected)
			}
		})
	}
}

func discreteSize(w, h uint32) FrameSize {
	return FrameSize{MinWidth: w, MaxWidth: w, MinHeight: h, MaxHeight: h}
}

func TestSelectMode(t *testing.T) {
	candidates := []Candidate{
		{PixelFormat: PixFmtYUYV, Size: discreteSize(1280, 720), Rates: []Framerate{{1, 10}}},
		{PixelFormat: PixFmtYUYV, Size: discreteSize(640, 480), Rates: []Framerate{{1, 30}}},
		{PixelFormat: PixFmtMJPEG, Size: discreteSize(1280, 720), Rates: []Framerate{{1001, 30000}}},
		{PixelFormat: PixFmtMJPEG, Size: discreteSize(1920, 1080), Rates: []Framerate{{1, 15}}},
	}

	tests := []struct {
		name     string
		req      Request
		ok       bool
		expected uint32
	}{
		{"mjpeg preferred", Request{Width: 1280, Height: 720, FPS: 30}, true, PixFmtMJPEG},
		{"only yuyv has vga", Request{Width: 640, Height: 480}, true, PixFmtYUYV},
		{"rate too high", Request{Width: 1920, Height: 1080, FPS: 30}, false, 0},
		{"size unavailable", Request{Width: 800, Height: 600}, false, 0},
		{"unconstrained", Request{}, true, PixFmtMJPEG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, ok := SelectMode(candidates, tt.req)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if mode.PixelFormat != tt.expected {
				t.Errorf("Expected %s, got %s", FormatFourCC(tt.expected), FormatFourCC(mode.PixelFormat))
			}
			if mode.Width != tt.req.Width || mode.Height != tt.req.Height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.req.Width, tt.req.Height, mode.Width, mode.Height)
			}
		})
	}
}

func TestSelectModeEmulatedRanksLast(t *testing.T) {
	candidates := []Candidate{
		{PixelFormat: PixFmtMJPEG, Emulated: true, Size: discreteSize(640, 480)},
		{PixelFormat: PixFmtH264, Size: discreteSize(640, 480)},
	}
	mode, ok := SelectMode(candidates, Request{Width: 640, Height: 480})
	if !ok {
		t.Fatal("Expected a mode")
	}
	if mode.PixelFormat != PixFmtH264 {
		t.Errorf("Expected native H264 over emulated MJPEG, got %s", FormatFourCC(mode.PixelFormat))
	}
}

func TestSelectModeUnknownRates(t *testing.T) {
	candidates := []Candidate{
		{PixelFormat: PixFmtYUYV, Size: FrameSize{MinWidth: 160, MaxWidth: 1920, StepWidth: 1, MinHeight: 120, MaxHeight: 1080, StepHeight: 1}},
	}
	if _, ok := SelectMode(candidates, Request{Width: 1280, Height: 720, FPS: 30}); !ok {
		t.Error("Expected stepwise size without rates to match")
	}
}

func TestModeInputFormat(t *testing.T) {
	tests := map[uint32]string{
		PixFmtMJPEG: "mjpeg",
		PixFmtYUYV:  "yuyv422",
		PixFmtNV12:  "nv12",
		0x31313131:  "",
	}
	for pf, expected := range tests {
		if got := (Mode{PixelFormat: pf}).InputFormat(); got != expected {
			t.Errorf("InputFormat(%s) = %q, want %q", FormatFourCC(pf), got, expected)
		}
	}
}
