// Package v4l2cam is the capture platform for Linux V4L2 devices. Devices
// are enumerated through ioctls and frames are produced by an ffmpeg
// subprocess writing MJPEG to a pipe.
package v4l2cam

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/ffmpeg"
	"github.com/smazurov/palmcam/internal/logging"
	"github.com/smazurov/palmcam/internal/process"
	"github.com/smazurov/palmcam/pkg/linuxav/v4l2"
)

// TestSourceID identifies the lavfi pattern device used with TestSource.
const TestSourceID = "testsrc"

// Config configures the platform.
type Config struct {
	FFmpegPath  string // empty resolves "ffmpeg" from PATH
	TestSource  bool   // replace hardware with an ffmpeg test pattern
	Quality     int    // MJPEG qscale when re-encoding
	LogLevel    string // ffmpeg -loglevel
	ForceEncode bool   // re-encode native MJPEG
	Options     []ffmpeg.OptionType
	StopTimeout time.Duration

	// Devices maps a facing to a stable device ID or a /dev path.
	Devices map[capture.Facing]string
}

// system is the slice of the V4L2 API the platform needs.
type system interface {
	Supported() bool
	FindDevices() ([]v4l2.DeviceInfo, error)
	CheckAccess(devicePath string) error
	ListCandidates(devicePath string) ([]v4l2.Candidate, error)
}

type kernel struct{}

func (kernel) Supported() bool                         { return v4l2.Supported() }
func (kernel) FindDevices() ([]v4l2.DeviceInfo, error) { return v4l2.FindDevices() }
func (kernel) CheckAccess(path string) error           { return v4l2.CheckAccess(path) }
func (kernel) ListCandidates(path string) ([]v4l2.Candidate, error) {
	return v4l2.ListCandidates(path)
}

// starter launches a pipeline and returns its stdout.
type starter func(id string, p *ffmpeg.Params) (io.Reader, pipeline, error)

// Platform implements capture.Platform.
type Platform struct {
	cfg      Config
	sys      system
	lookPath func(string) (string, error)
	start    starter
	logger   *slog.Logger
	seq      atomic.Uint64
}

// New creates a platform backed by the running kernel.
func New(cfg Config, logger *slog.Logger) *Platform {
	if logger == nil {
		logger = logging.GetLogger("platform")
	}
	p := &Platform{
		cfg:      cfg,
		sys:      kernel{},
		lookPath: exec.LookPath,
		logger:   logger,
	}
	p.start = p.startProcess
	return p
}

func (p *Platform) binary() string {
	if p.cfg.FFmpegPath != "" {
		return p.cfg.FFmpegPath
	}
	return ffmpeg.DefaultBinary
}

// CaptureSupported reports whether ffmpeg resolves and, for hardware, the
// kernel exposes video4linux.
func (p *Platform) CaptureSupported() bool {
	if _, err := p.lookPath(p.binary()); err != nil {
		p.logger.Debug("ffmpeg not found", "binary", p.binary(), "error", err)
		return false
	}
	return p.cfg.TestSource || p.sys.Supported()
}

// Devices enumerates capture devices without opening a stream.
func (p *Platform) Devices(_ context.Context) ([]capture.DeviceInfo, error) {
	if p.cfg.TestSource {
		return []capture.DeviceInfo{{ID: TestSourceID, Name: "ffmpeg test pattern"}}, nil
	}
	found, err := p.sys.FindDevices()
	if err != nil {
		return nil, err
	}
	out := make([]capture.DeviceInfo, 0, len(found))
	for _, d := range found {
		out = append(out, capture.DeviceInfo{ID: d.DeviceID, Path: d.DevicePath, Name: d.DeviceName})
	}
	return out, nil
}

// Permission probes access(2) on every device. One accessible device is
// enough for Granted.
func (p *Platform) Permission(_ context.Context) capture.Permission {
	if p.cfg.TestSource {
		return capture.PermissionGranted
	}
	found, err := p.sys.FindDevices()
	if err != nil || len(found) == 0 {
		return capture.PermissionUnknown
	}
	denied := 0
	for _, d := range found {
		err := p.sys.CheckAccess(d.DevicePath)
		if err == nil {
			return capture.PermissionGranted
		}
		if isPermissionErr(err) {
			denied++
		}
	}
	if denied == len(found) {
		return capture.PermissionDenied
	}
	return capture.PermissionUnknown
}

// Open resolves the profile to a device and mode and starts a pipeline.
func (p *Platform) Open(ctx context.Context, profile capture.ConstraintProfile) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := &ffmpeg.Params{
		Binary:      p.cfg.FFmpegPath,
		Quality:     p.cfg.Quality,
		LogLevel:    p.cfg.LogLevel,
		ForceEncode: p.cfg.ForceEncode,
		Options:     p.cfg.Options,
		FPS:         profile.FrameRate,
	}
	if profile.Resolution != nil {
		params.Width = profile.Resolution.Width
		params.Height = profile.Resolution.Height
	}

	if p.cfg.TestSource {
		if profile.Facing != capture.FacingAny {
			if _, ok := p.cfg.Devices[profile.Facing]; !ok {
				return nil, overconstrained(profile, "no %s-facing device configured", profile.Facing)
			}
		}
		params.TestSource = true
	} else {
		device, err := p.resolveDevice(profile)
		if err != nil {
			return nil, err
		}
		mode, err := p.selectMode(device, profile)
		if err != nil {
			return nil, err
		}
		params.DevicePath = device.DevicePath
		params.InputFormat = mode.InputFormat()
	}

	id := fmt.Sprintf("v4l2cam-%d", p.seq.Add(1))
	p.logger.Info("Opening capture pipeline", "stream", id, "profile", profile.String(), "command", ffmpeg.CommandLine(params))

	stdout, proc, err := p.start(id, params)
	if err != nil {
		return nil, &capture.Error{Kind: capture.KindVideoPipelineFailure, Op: "open", Profile: profile.String(), Err: err}
	}
	return newStream(id, stdout, proc, p.logger), nil
}

func (p *Platform) resolveDevice(profile capture.ConstraintProfile) (v4l2.DeviceInfo, error) {
	found, err := p.sys.FindDevices()
	if err != nil {
		return v4l2.DeviceInfo{}, fmt.Errorf("enumerate devices: %w", err)
	}
	if len(found) == 0 {
		return v4l2.DeviceInfo{}, capture.NewError(capture.KindNoDeviceFound, "open", nil)
	}

	if profile.Facing == capture.FacingAny {
		return p.checkAccess(found[0], profile)
	}

	want, ok := p.cfg.Devices[profile.Facing]
	if !ok || want == "" {
		return v4l2.DeviceInfo{}, overconstrained(profile, "no %s-facing device configured", profile.Facing)
	}
	for _, d := range found {
		if d.DeviceID == want || d.DevicePath == want {
			return p.checkAccess(d, profile)
		}
	}
	return v4l2.DeviceInfo{}, overconstrained(profile, "%s-facing device %s not present", profile.Facing, want)
}

func (p *Platform) checkAccess(d v4l2.DeviceInfo, profile capture.ConstraintProfile) (v4l2.DeviceInfo, error) {
	if err := p.sys.CheckAccess(d.DevicePath); err != nil {
		if isPermissionErr(err) {
			return v4l2.DeviceInfo{}, &capture.Error{Kind: capture.KindPermissionDenied, Op: "open", Profile: profile.String(), Err: err}
		}
		return v4l2.DeviceInfo{}, fmt.Errorf("access %s: %w", d.DevicePath, err)
	}
	return d, nil
}

func (p *Platform) selectMode(d v4l2.DeviceInfo, profile capture.ConstraintProfile) (v4l2.Mode, error) {
	candidates, err := p.sys.ListCandidates(d.DevicePath)
	if err != nil {
		if isPermissionErr(err) {
			return v4l2.Mode{}, &capture.Error{Kind: capture.KindPermissionDenied, Op: "open", Profile: profile.String(), Err: err}
		}
		return v4l2.Mode{}, fmt.Errorf("list modes of %s: %w", d.DevicePath, err)
	}

	req := v4l2.Request{FPS: profile.FrameRate}
	if profile.Resolution != nil {
		req.Width = uint32(profile.Resolution.Width)
		req.Height = uint32(profile.Resolution.Height)
	}
	mode, ok := v4l2.SelectMode(candidates, req)
	if !ok {
		return v4l2.Mode{}, overconstrained(profile, "%s offers no mode for %s", d.DevicePath, profile)
	}
	p.logger.Debug("Selected mode", "device", d.DevicePath, "format", v4l2.FormatFourCC(mode.PixelFormat))
	return mode, nil
}

func (p *Platform) startProcess(id string, params *ffmpeg.Params) (io.Reader, pipeline, error) {
	proc := process.New(id, ffmpeg.Binary(params), ffmpeg.BuildArgs(params), p.logger)
	proc.SetLogParser(logging.GetLogger("ffmpeg").With("stream", id), ffmpeg.ParseLogLevel)
	if p.cfg.StopTimeout > 0 {
		proc.SetTimeouts(p.cfg.StopTimeout, p.cfg.StopTimeout)
	}
	stdout, err := proc.Start()
	if err != nil {
		return nil, nil, err
	}
	return stdout, proc, nil
}

func overconstrained(profile capture.ConstraintProfile, format string, args ...any) error {
	return &capture.Error{
		Kind:    capture.KindOverconstrained,
		Op:      "open",
		Profile: profile.String(),
		Err:     fmt.Errorf(format, args...),
	}
}

func isPermissionErr(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}
