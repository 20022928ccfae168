package v4l2cam

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/ffmpeg"
	"github.com/smazurov/palmcam/pkg/linuxav/v4l2"
)

type fakeSystem struct {
	supported  bool
	devices    []v4l2.DeviceInfo
	access     map[string]error
	candidates []v4l2.Candidate
}

func (s *fakeSystem) Supported() bool                         { return s.supported }
func (s *fakeSystem) FindDevices() ([]v4l2.DeviceInfo, error) { return s.devices, nil }
func (s *fakeSystem) CheckAccess(path string) error           { return s.access[path] }
func (s *fakeSystem) ListCandidates(string) ([]v4l2.Candidate, error) {
	return s.candidates, nil
}

type fakePipeline struct {
	stops atomic.Int32
	done  chan struct{}
	once  sync.Once
	w     *io.PipeWriter
}

func (p *fakePipeline) Stop() int {
	p.stops.Add(1)
	p.once.Do(func() {
		p.w.Close()
		close(p.done)
	})
	return 0
}

func (p *fakePipeline) Done() <-chan struct{} { return p.done }

type harness struct {
	platform *Platform
	sys      *fakeSystem

	mu       sync.Mutex
	params   []*ffmpeg.Params
	pipes    []*fakePipeline
	startErr error
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		sys: &fakeSystem{
			supported: true,
			devices: []v4l2.DeviceInfo{
				{DevicePath: "/dev/video0", DeviceName: "Front", DeviceID: "usb-front-video-index0"},
				{DevicePath: "/dev/video2", DeviceName: "Rear", DeviceID: "usb-rear-video-index0"},
			},
			access: map[string]error{},
			candidates: []v4l2.Candidate{{
				PixelFormat: v4l2.PixFmtMJPEG,
				Size:        v4l2.FrameSize{MinWidth: 1280, MaxWidth: 1280, MinHeight: 720, MaxHeight: 720},
				Rates:       []v4l2.Framerate{{Numerator: 1, Denominator: 30}},
			}},
		},
	}
	p := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.sys = h.sys
	p.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	p.start = func(_ string, params *ffmpeg.Params) (io.Reader, pipeline, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.startErr != nil {
			return nil, nil, h.startErr
		}
		r, w := io.Pipe()
		fp := &fakePipeline{done: make(chan struct{}), w: w}
		h.params = append(h.params, params)
		h.pipes = append(h.pipes, fp)
		return r, fp, nil
	}
	h.platform = p
	return h
}

func (h *harness) lastPipe() *fakePipeline {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pipes[len(h.pipes)-1]
}

func (h *harness) lastParams() *ffmpeg.Params {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params[len(h.params)-1]
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func hd(facing capture.Facing) capture.ConstraintProfile {
	return capture.ConstraintProfile{
		Name:       "hd",
		Resolution: &capture.Resolution{Width: 1280, Height: 720},
		Facing:     facing,
		FrameRate:  30,
	}
}

func TestOpenStreamsFrames(t *testing.T) {
	h := newHarness(t, Config{Devices: map[capture.Facing]string{capture.FacingEnvironment: "usb-rear-video-index0"}})

	stream, err := h.platform.Open(context.Background(), hd(capture.FacingEnvironment))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	params := h.lastParams()
	if params.DevicePath != "/dev/video2" {
		t.Errorf("Expected rear device, got %s", params.DevicePath)
	}
	if params.InputFormat != "mjpeg" || params.Width != 1280 || params.Height != 720 || params.FPS != 30 {
		t.Errorf("Unexpected params %+v", params)
	}

	pipe := h.lastPipe()
	frame := testJPEG(t, 1280, 720)
	go func() {
		_, _ = pipe.w.Write(frame)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	geom, err := stream.WaitGeometry(ctx)
	if err != nil {
		t.Fatalf("WaitGeometry: %v", err)
	}
	if geom.Width != 1280 || geom.Height != 720 {
		t.Errorf("Expected 1280x720, got %s", geom)
	}

	img, err := stream.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if img.Bounds().Dx() != 1280 {
		t.Errorf("Expected width 1280, got %d", img.Bounds().Dx())
	}

	tracks := stream.Tracks()
	if len(tracks) != 1 || !tracks[0].Ready() {
		t.Fatal("Expected one ready track")
	}
	tracks[0].Stop()
	tracks[0].Stop()
	if tracks[0].Ready() {
		t.Error("Expected track to be stopped")
	}
	if got := pipe.stops.Load(); got != 1 {
		t.Errorf("Expected 1 pipeline stop, got %d", got)
	}
}

func TestOpenRejections(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		setup   func(*harness)
		profile capture.ConstraintProfile
		kind    capture.ErrorKind
	}{
		{
			name:    "unmapped facing",
			profile: hd(capture.FacingUser),
			kind:    capture.KindOverconstrained,
		},
		{
			name:    "mapped device absent",
			cfg:     Config{Devices: map[capture.Facing]string{capture.FacingUser: "usb-missing"}},
			profile: hd(capture.FacingUser),
			kind:    capture.KindOverconstrained,
		},
		{
			name:    "mode unavailable",
			profile: capture.ConstraintProfile{Resolution: &capture.Resolution{Width: 640, Height: 480}},
			kind:    capture.KindOverconstrained,
		},
		{
			name: "permission denied",
			setup: func(h *harness) {
				h.sys.access["/dev/video0"] = syscall.EACCES
			},
			profile: capture.ConstraintProfile{},
			kind:    capture.KindPermissionDenied,
		},
		{
			name: "no devices",
			setup: func(h *harness) {
				h.sys.devices = nil
			},
			profile: capture.ConstraintProfile{},
			kind:    capture.KindNoDeviceFound,
		},
		{
			name: "ffmpeg fails to start",
			setup: func(h *harness) {
				h.startErr = errors.New("exec: not found")
			},
			profile: capture.ConstraintProfile{},
			kind:    capture.KindVideoPipelineFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg)
			if tt.setup != nil {
				tt.setup(h)
			}
			_, err := h.platform.Open(context.Background(), tt.profile)
			if got := capture.KindOf(err); got != tt.kind {
				t.Errorf("Expected %s, got %s (%v)", tt.kind, got, err)
			}
		})
	}
}

func TestWaitGeometryPipelineEnded(t *testing.T) {
	h := newHarness(t, Config{})
	stream, err := h.platform.Open(context.Background(), capture.ConstraintProfile{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	pipe := h.lastPipe()
	_, _ = pipe.w.Write([]byte("not a jpeg"))
	pipe.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := stream.WaitGeometry(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected pipeline error, got %v", err)
	}
	if _, err := stream.Frame(); err == nil {
		t.Error("Expected Frame to fail after the pipeline ended")
	}
	if stream.Tracks()[0].Ready() {
		t.Error("Expected track of an ended pipeline to be not ready")
	}
}

func TestPermission(t *testing.T) {
	h := newHarness(t, Config{})
	if got := h.platform.Permission(context.Background()); got != capture.PermissionGranted {
		t.Errorf("Expected granted, got %s", got)
	}

	h.sys.access["/dev/video0"] = syscall.EACCES
	h.sys.access["/dev/video2"] = syscall.EPERM
	if got := h.platform.Permission(context.Background()); got != capture.PermissionDenied {
		t.Errorf("Expected denied, got %s", got)
	}

	h.sys.devices = nil
	if got := h.platform.Permission(context.Background()); got != capture.PermissionUnknown {
		t.Errorf("Expected unknown, got %s", got)
	}
}

func TestCaptureSupported(t *testing.T) {
	h := newHarness(t, Config{})
	if !h.platform.CaptureSupported() {
		t.Error("Expected capture to be supported")
	}

	h.sys.supported = false
	if h.platform.CaptureSupported() {
		t.Error("Expected no support without video4linux")
	}

	h.platform.cfg.TestSource = true
	if !h.platform.CaptureSupported() {
		t.Error("Expected test source to need only ffmpeg")
	}

	h.platform.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if h.platform.CaptureSupported() {
		t.Error("Expected no support without ffmpeg")
	}
}

func TestTestSource(t *testing.T) {
	h := newHarness(t, Config{TestSource: true, Devices: map[capture.Facing]string{capture.FacingEnvironment: TestSourceID}})

	devices, err := h.platform.Devices(context.Background())
	if err != nil || len(devices) != 1 || devices[0].ID != TestSourceID {
		t.Fatalf("Expected the test pattern device, got %v (%v)", devices, err)
	}

	if _, err := h.platform.Open(context.Background(), hd(capture.FacingEnvironment)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !h.lastParams().TestSource {
		t.Error("Expected a lavfi test source pipeline")
	}

	_, err = h.platform.Open(context.Background(), hd(capture.FacingUser))
	if capture.KindOf(err) != capture.KindOverconstrained {
		t.Errorf("Expected overconstrained for unmapped facing, got %v", err)
	}
}
