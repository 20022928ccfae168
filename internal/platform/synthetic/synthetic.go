// Package synthetic is an in-process capture platform that renders a test
// pattern. It needs no hardware and no ffmpeg.
package synthetic

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
)

// Config describes the simulated hardware.
type Config struct {
	// Resolutions the camera offers. Empty means 1280x720 and 640x480.
	Resolutions []capture.Resolution
	// MaxFrameRate rejects faster requests. Zero means 30.
	MaxFrameRate float64
	// Facings the camera can satisfy. Empty means any facing.
	Facings []capture.Facing
	// Permission reported by the platform. Empty means granted.
	Permission capture.Permission
	// GeometryDelay simulates the time until the first decoded frame.
	GeometryDelay time.Duration
}

var defaultResolutions = []capture.Resolution{{Width: 1280, Height: 720}, {Width: 640, Height: 480}}

// Platform implements capture.Platform.
type Platform struct {
	cfg  Config
	seq  atomic.Uint64
	open atomic.Int64
}

// New creates a synthetic platform.
func New(cfg Config) *Platform {
	if len(cfg.Resolutions) == 0 {
		cfg.Resolutions = defaultResolutions
	}
	if cfg.MaxFrameRate <= 0 {
		cfg.MaxFrameRate = 30
	}
	if cfg.Permission == "" {
		cfg.Permission = capture.PermissionGranted
	}
	return &Platform{cfg: cfg}
}

func (p *Platform) CaptureSupported() bool { return true }

func (p *Platform) Devices(context.Context) ([]capture.DeviceInfo, error) {
	return []capture.DeviceInfo{{ID: "synthetic-0", Name: "Synthetic test pattern"}}, nil
}

func (p *Platform) Permission(context.Context) capture.Permission { return p.cfg.Permission }

// OpenStreams returns how many streams are open right now.
func (p *Platform) OpenStreams() int64 { return p.open.Load() }

// Open returns a pattern stream when the profile fits the simulated camera.
func (p *Platform) Open(ctx context.Context, profile capture.ConstraintProfile) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.cfg.Permission == capture.PermissionDenied {
		return nil, capture.NewError(capture.KindPermissionDenied, "open", nil)
	}
	if profile.Facing != capture.FacingAny && len(p.cfg.Facings) > 0 && !slices.Contains(p.cfg.Facings, profile.Facing) {
		return nil, overconstrained(profile, "no %s-facing camera", profile.Facing)
	}
	if profile.FrameRate > p.cfg.MaxFrameRate {
		return nil, overconstrained(profile, "frame rate %.0f above %.0f", profile.FrameRate, p.cfg.MaxFrameRate)
	}

	size := p.cfg.Resolutions[0]
	if profile.Resolution != nil {
		if !slices.Contains(p.cfg.Resolutions, *profile.Resolution) {
			return nil, overconstrained(profile, "resolution %s unsupported", profile.Resolution)
		}
		size = *profile.Resolution
	}

	p.open.Add(1)
	s := &stream{
		id:      fmt.Sprintf("synthetic-%d", p.seq.Add(1)),
		size:    size,
		started: time.Now(),
		delay:   p.cfg.GeometryDelay,
	}
	s.track = &track{id: s.id + "-video", onStop: func() { p.open.Add(-1) }}
	return s, nil
}

func overconstrained(profile capture.ConstraintProfile, format string, args ...any) error {
	return &capture.Error{
		Kind:    capture.KindOverconstrained,
		Op:      "open",
		Profile: profile.String(),
		Err:     fmt.Errorf(format, args...),
	}
}

type stream struct {
	id      string
	size    capture.Resolution
	started time.Time
	delay   time.Duration
	track   *track
	frames  atomic.Uint64
}

func (s *stream) ID() string              { return s.id }
func (s *stream) Tracks() []capture.Track { return []capture.Track{s.track} }

func (s *stream) WaitGeometry(ctx context.Context) (capture.Resolution, error) {
	wait := time.Until(s.started.Add(s.delay))
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return capture.Resolution{}, ctx.Err()
		}
	}
	return s.size, nil
}

func (s *stream) Frame() (image.Image, error) {
	if !s.track.Ready() {
		return nil, fmt.Errorf("stream %s stopped", s.id)
	}
	return Pattern(s.size.Width, s.size.Height, int(s.frames.Add(1))), nil
}

type track struct {
	id     string
	once   sync.Once
	done   atomic.Bool
	onStop func()
}

func (t *track) ID() string   { return t.id }
func (t *track) Kind() string { return "video" }
func (t *track) Ready() bool  { return !t.done.Load() }

func (t *track) Stop() {
	t.once.Do(func() {
		t.done.Store(true)
		t.onStop()
	})
}

// SMPTE-style bars, left to right.
var bars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// Pattern renders color bars with a white box that moves with frame, so
// consecutive frames differ.
func Pattern(w, h, frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return img
	}
	box := max(h/8, 1)
	bx := (frame * 4) % max(w-box, 1)
	by := (h - box) / 2

	for y := range h {
		for x := range w {
			c := bars[x*len(bars)/w]
			if x >= bx && x < bx+box && y >= by && y < by+box {
				c = color.RGBA{255, 255, 255, 255}
			}
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = c.A
		}
	}
	return img
}
