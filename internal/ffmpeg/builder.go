package ffmpeg

import (
	"strconv"
	"strings"
)

// Defaults for the MJPEG pipe.
const (
	DefaultBinary   = "ffmpeg"
	DefaultQuality  = 5
	DefaultLogLevel = "warning"
)

// BuildArgs builds the argument vector for a capture pipeline. The output is
// a raw MJPEG stream on stdout, one JPEG per frame.
func BuildArgs(p *Params) []string {
	logLevel := p.LogLevel
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}
	args := []string{"-hide_banner", "-nostdin", "-loglevel", "level+" + logLevel}

	if p.TestSource {
		size := p.Resolution()
		if size == "" {
			size = "1280x720"
		}
		rate := "30"
		if p.FPS > 0 {
			rate = formatFPS(p.FPS)
		}
		// -re keeps the pattern at its native rate instead of spinning a core
		args = append(args, "-re", "-f", "lavfi", "-i", "testsrc2=size="+size+":rate="+rate)
	} else {
		args = append(args, "-f", "v4l2")
		args = append(args, applyOptions(p.Options)...)
		if p.InputFormat != "" {
			args = append(args, "-input_format", p.InputFormat)
		}
		if size := p.Resolution(); size != "" {
			args = append(args, "-video_size", size)
		}
		if p.FPS > 0 {
			args = append(args, "-framerate", formatFPS(p.FPS))
		}
		args = append(args, "-i", p.DevicePath)
	}

	args = append(args, "-an")
	if p.Passthrough() {
		args = append(args, "-c:v", "copy")
	} else {
		quality := p.Quality
		if quality < 2 || quality > 31 {
			quality = DefaultQuality
		}
		args = append(args, "-c:v", "mjpeg", "-pix_fmt", "yuvj420p", "-q:v", itoa(quality))
	}

	return append(args, "-f", "mjpeg", "pipe:1")
}

// Binary returns the executable for p.
func Binary(p *Params) string {
	if p.Binary != "" {
		return p.Binary
	}
	return DefaultBinary
}

// CommandLine renders the pipeline for logs. It is not meant for a shell.
func CommandLine(p *Params) string {
	return Binary(p) + " " + strings.Join(BuildArgs(p), " ")
}

func formatFPS(fps float64) string {
	return strconv.FormatFloat(fps, 'f', -1, 64)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
