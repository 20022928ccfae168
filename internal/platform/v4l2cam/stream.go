package v4l2cam

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/ffmpeg"
)

// pipeline is a running frame producer. *process.Process satisfies it.
type pipeline interface {
	Stop() int
	Done() <-chan struct{}
}

var errPipelineEnded = errors.New("video pipeline ended")

// mjpegStream exposes the latest JPEG read from a pipeline's stdout.
type mjpegStream struct {
	id     string
	track  *pipelineTrack
	logger *slog.Logger

	mu       sync.Mutex
	latest   []byte
	frames   uint64
	geometry capture.Resolution
	err      error

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
}

func newStream(id string, r io.Reader, p pipeline, logger *slog.Logger) *mjpegStream {
	s := &mjpegStream{
		id:     id,
		track:  &pipelineTrack{id: id + "-video", proc: p},
		logger: logger,
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.read(r)
	return s
}

func (s *mjpegStream) read(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256<<10), ffmpeg.MaxFrameSize)
	scanner.Split(ffmpeg.ScanJPEG)

	for scanner.Scan() {
		frame := append([]byte(nil), scanner.Bytes()...)

		s.mu.Lock()
		first := s.frames == 0
		s.mu.Unlock()

		if first {
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
			if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
				s.logger.Debug("Skipping undecodable frame", "stream", s.id, "error", err)
				continue
			}
			s.mu.Lock()
			s.geometry = capture.Resolution{Width: cfg.Width, Height: cfg.Height}
			s.mu.Unlock()
		}

		s.mu.Lock()
		s.latest = frame
		s.frames++
		s.mu.Unlock()
		s.readyOnce.Do(func() { close(s.ready) })
	}

	err := scanner.Err()
	if err == nil {
		err = errPipelineEnded
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Debug("Stream reader finished", "stream", s.id, "frames", s.frameCount(), "error", err)
}

func (s *mjpegStream) frameCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *mjpegStream) ID() string { return s.id }

func (s *mjpegStream) Tracks() []capture.Track { return []capture.Track{s.track} }

func (s *mjpegStream) WaitGeometry(ctx context.Context) (capture.Resolution, error) {
	select {
	case <-s.ready:
	case <-s.done:
		select {
		case <-s.ready:
		default:
			return capture.Resolution{}, fmt.Errorf("no frame decoded: %w", s.readErr())
		}
	case <-ctx.Done():
		return capture.Resolution{}, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry, nil
}

func (s *mjpegStream) readErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Frame decodes the most recent JPEG into a fresh image.
func (s *mjpegStream) Frame() (image.Image, error) {
	select {
	case <-s.done:
		return nil, s.readErr()
	default:
	}

	s.mu.Lock()
	data := s.latest
	s.mu.Unlock()
	if data == nil {
		return nil, errors.New("no frame received yet")
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// pipelineTrack is the single video track of a stream. Stopping it stops
// the pipeline process.
type pipelineTrack struct {
	id      string
	proc    pipeline
	stopped atomic.Bool
}

func (t *pipelineTrack) ID() string   { return t.id }
func (t *pipelineTrack) Kind() string { return "video" }

func (t *pipelineTrack) Ready() bool {
	if t.stopped.Load() {
		return false
	}
	select {
	case <-t.proc.Done():
		return false
	default:
		return true
	}
}

func (t *pipelineTrack) Stop() {
	if t.stopped.Swap(true) {
		return
	}
	t.proc.Stop()
}
