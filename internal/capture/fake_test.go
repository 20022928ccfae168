package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/palmcam/internal/events"
)

type fakeTrack struct {
	id      string
	ready   bool
	stopped atomic.Int32
}

func (t *fakeTrack) ID() string   { return t.id }
func (t *fakeTrack) Kind() string { return "video" }
func (t *fakeTrack) Ready() bool  { return t.ready }
func (t *fakeTrack) Stop()        { t.stopped.Add(1) }

type fakeStream struct {
	id       string
	tracks   []*fakeTrack
	geometry Resolution
	geomErr  error
	gate     chan struct{} // WaitGeometry blocks until closed, if set
	img      image.Image
	frameErr error
}

func newFakeStream(id string, w, h int) *fakeStream {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return &fakeStream{
		id:       id,
		tracks:   []*fakeTrack{{id: id + "-video", ready: true}},
		geometry: Resolution{Width: w, Height: h},
		img:      img,
	}
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) Tracks() []Track {
	out := make([]Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

func (s *fakeStream) WaitGeometry(ctx context.Context) (Resolution, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return Resolution{}, ctx.Err()
		}
	}
	return s.geometry, s.geomErr
}

func (s *fakeStream) Frame() (image.Image, error) {
	return s.img, s.frameErr
}

// stops returns how many times each track was stopped, summed.
func (s *fakeStream) stops() int {
	n := 0
	for _, t := range s.tracks {
		n += int(t.stopped.Load())
	}
	return n
}

// openStep scripts one Open call. block makes Open ignore ctx and wait.
type openStep struct {
	stream *fakeStream
	err    error
	block  chan struct{}
}

type fakePlatform struct {
	mu        sync.Mutex
	supported bool
	devices   []DeviceInfo
	devErr    error
	perm      Permission
	steps     []openStep
	opened    []ConstraintProfile
}

func newFakePlatform(steps ...openStep) *fakePlatform {
	return &fakePlatform{
		supported: true,
		devices:   []DeviceInfo{{ID: "video0", Path: "/dev/video0", Name: "Test Camera"}},
		perm:      PermissionGranted,
		steps:     steps,
	}
}

func (p *fakePlatform) CaptureSupported() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supported
}

func (p *fakePlatform) Devices(context.Context) ([]DeviceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.devices, p.devErr
}

func (p *fakePlatform) Permission(context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perm
}

func (p *fakePlatform) Open(_ context.Context, profile ConstraintProfile) (Stream, error) {
	p.mu.Lock()
	idx := len(p.opened)
	p.opened = append(p.opened, profile)
	var step openStep
	switch {
	case idx < len(p.steps):
		step = p.steps[idx]
	case len(p.steps) > 0:
		step = p.steps[len(p.steps)-1]
	default:
		step = openStep{err: NewError(KindOverconstrained, "open", errors.New("unscripted"))}
	}
	p.mu.Unlock()

	if step.block != nil {
		<-step.block
	}
	if step.err != nil {
		return nil, step.err
	}
	if step.stream == nil {
		return nil, nil
	}
	return step.stream, nil
}

func (p *fakePlatform) opens() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.opened)
}

func (p *fakePlatform) openedProfiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.opened))
	for i, pr := range p.opened {
		out[i] = pr.String()
	}
	return out
}

func (p *fakePlatform) setDevices(devices []DeviceInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices = devices
}

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		if e, ok := ev.(events.SessionStateChangedEvent); ok {
			out = append(out, fmt.Sprintf("%s->%s", e.From, e.To))
		}
	}
	return out
}

func (r *recorder) count(match func(events.Event) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if match(ev) {
			n++
		}
	}
	return n
}

func overconstrained() openStep {
	return openStep{err: NewError(KindOverconstrained, "open", errors.New("no matching format"))}
}

func alwaysSecure() bool { return true }

// newTestController builds a controller and closes it when the test ends so
// the process-wide session claim is always returned.
func newTestController(t *testing.T, platform Platform, opts Options) *Controller {
	t.Helper()
	opts.Platform = platform
	if opts.Secure == nil {
		opts.Secure = alwaysSecure
	}
	c, err := NewController(opts)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
