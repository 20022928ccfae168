// Package cmd holds the palmcam subcommands and the wiring they share with
// the server.
package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/config"
	"github.com/smazurov/palmcam/internal/ffmpeg"
	"github.com/smazurov/palmcam/internal/logging"
	"github.com/smazurov/palmcam/internal/platform/synthetic"
	"github.com/smazurov/palmcam/internal/platform/v4l2cam"
)

// Options for the CLI - flat structure with toml mapping.
// Durations and fractions are text so one value works as a flag, an env
// var and a TOML number alike.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port    string `help:"Address to listen on" short:"p" default:"127.0.0.1:8090" toml:"server.port" env:"SERVER_PORT"`
	TLSCert string `help:"TLS certificate file" default:"" toml:"server.tls_cert" env:"SERVER_TLS_CERT"`
	TLSKey  string `help:"TLS key file" default:"" toml:"server.tls_key" env:"SERVER_TLS_KEY"`

	// Capture settings
	CaptureTestSource        bool   `help:"Use an ffmpeg test pattern instead of a camera" default:"false" toml:"capture.test_source" env:"CAPTURE_TEST_SOURCE"`
	CaptureSynthetic         bool   `help:"Use the in-process pattern platform (no ffmpeg)" default:"false" toml:"capture.synthetic" env:"CAPTURE_SYNTHETIC"`
	CaptureFfmpegPath        string `help:"ffmpeg binary" default:"" toml:"capture.ffmpeg_path" env:"CAPTURE_FFMPEG_PATH"`
	CaptureFfmpegOptions     string `help:"Comma-separated ffmpeg input options" default:"" toml:"capture.ffmpeg_options" env:"CAPTURE_FFMPEG_OPTIONS"`
	CaptureForceEncode       bool   `help:"Re-encode MJPEG from the camera" default:"false" toml:"capture.force_encode" env:"CAPTURE_FORCE_ENCODE"`
	CaptureEnvironmentDevice string `help:"Device ID or path of the rear camera" default:"" toml:"capture.environment_device" env:"CAPTURE_ENVIRONMENT_DEVICE"`
	CaptureUserDevice        string `help:"Device ID or path of the front camera" default:"" toml:"capture.user_device" env:"CAPTURE_USER_DEVICE"`
	CaptureProfilesFile      string `help:"Constraint ladder file, hot-reloaded" default:"" toml:"capture.profiles_file" env:"CAPTURE_PROFILES_FILE"`
	CaptureBaseTimeout       string `help:"First acquisition timeout" default:"10s" toml:"capture.base_timeout" env:"CAPTURE_BASE_TIMEOUT"`
	CaptureMaxTimeout        string `help:"Acquisition timeout cap" default:"30s" toml:"capture.max_timeout" env:"CAPTURE_MAX_TIMEOUT"`
	CaptureBackoffStep       string `help:"Timeout growth per failure" default:"0.5" toml:"capture.backoff_step" env:"CAPTURE_BACKOFF_STEP"`
	CaptureAttemptPause      string `help:"Pause between ladder profiles" default:"150ms" toml:"capture.attempt_pause" env:"CAPTURE_ATTEMPT_PAUSE"`
	CaptureCropFraction      string `help:"Center crop fraction" default:"0.6" toml:"capture.crop_fraction" env:"CAPTURE_CROP_FRACTION"`
	CaptureJpegQuality       int    `help:"JPEG quality of captured stills" default:"90" toml:"capture.jpeg_quality" env:"CAPTURE_JPEG_QUALITY"`
	CaptureMaxZoom           string `help:"Maximum preview zoom" default:"4" toml:"capture.max_zoom" env:"CAPTURE_MAX_ZOOM"`

	// Feature settings
	FeaturesLedIndicator bool   `help:"Light a board LED while the camera is in use" default:"false" toml:"features.led_indicator" env:"FEATURES_LED_INDICATOR"`
	FeaturesLedName      string `help:"LED to drive (default: the board's status LED)" default:"" toml:"features.led_name" env:"FEATURES_LED_NAME"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCapture  string `help:"Capture logging level" default:"info" toml:"logging.capture" env:"LOGGING_CAPTURE"`
	LoggingPlatform string `help:"Platform logging level" default:"info" toml:"logging.platform" env:"LOGGING_PLATFORM"`
	LoggingDevices  string `help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingFfmpeg   string `help:"ffmpeg output logging level" default:"warn" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingApi      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHttp     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfig   string `help:"Config reload logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

// InitLogging configures the logging system from the options.
func (o *Options) InitLogging() {
	logging.Initialize(logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"capture":  o.LoggingCapture,
			"platform": o.LoggingPlatform,
			"devices":  o.LoggingDevices,
			"ffmpeg":   o.LoggingFfmpeg,
			"api":      o.LoggingApi,
			"http":     o.LoggingHttp,
			"config":   o.LoggingConfig,
		},
	})
}

// Timeouts parses the acquisition timing options.
func (o *Options) Timeouts() (capture.TimeoutPolicy, time.Duration, error) {
	var policy capture.TimeoutPolicy
	var err error
	if policy.Base, err = parseDuration("capture.base_timeout", o.CaptureBaseTimeout); err != nil {
		return policy, 0, err
	}
	if policy.Max, err = parseDuration("capture.max_timeout", o.CaptureMaxTimeout); err != nil {
		return policy, 0, err
	}
	if policy.Step, err = parseFloat("capture.backoff_step", o.CaptureBackoffStep); err != nil {
		return policy, 0, err
	}
	pause, err := parseDuration("capture.attempt_pause", o.CaptureAttemptPause)
	if err != nil {
		return policy, 0, err
	}
	return policy, pause, nil
}

// Platform builds the capture platform the options select.
func (o *Options) Platform() (capture.Platform, error) {
	if o.CaptureSynthetic {
		return synthetic.New(synthetic.Config{}), nil
	}

	var ffOpts []ffmpeg.OptionType
	if strings.TrimSpace(o.CaptureFfmpegOptions) != "" {
		parsed, err := ffmpeg.ParseOptions(strings.Split(o.CaptureFfmpegOptions, ","))
		if err != nil {
			return nil, fmt.Errorf("capture.ffmpeg_options: %w", err)
		}
		ffOpts = parsed
	}

	devices := map[capture.Facing]string{}
	if o.CaptureEnvironmentDevice != "" {
		devices[capture.FacingEnvironment] = o.CaptureEnvironmentDevice
	}
	if o.CaptureUserDevice != "" {
		devices[capture.FacingUser] = o.CaptureUserDevice
	}
	if o.CaptureTestSource && len(devices) == 0 {
		// The pattern stands in for either camera
		devices[capture.FacingEnvironment] = v4l2cam.TestSourceID
		devices[capture.FacingUser] = v4l2cam.TestSourceID
	}

	return v4l2cam.New(v4l2cam.Config{
		FFmpegPath:  o.CaptureFfmpegPath,
		TestSource:  o.CaptureTestSource,
		LogLevel:    o.LoggingFfmpeg,
		ForceEncode: o.CaptureForceEncode,
		Options:     ffOpts,
		Devices:     devices,
	}, logging.GetLogger("platform")), nil
}

// Ladder returns the configured constraint ladder, or nil for the default.
func (o *Options) Ladder() ([]capture.ConstraintProfile, error) {
	if o.CaptureProfilesFile == "" {
		return nil, nil
	}
	return config.LoadProfiles(o.CaptureProfilesFile)
}

// NewController builds a controller from the options.
func (o *Options) NewController(pub capture.Publisher, secure func() bool) (*capture.Controller, error) {
	platform, err := o.Platform()
	if err != nil {
		return nil, err
	}
	policy, pause, err := o.Timeouts()
	if err != nil {
		return nil, err
	}
	crop, err := parseFloat("capture.crop_fraction", o.CaptureCropFraction)
	if err != nil {
		return nil, err
	}
	maxZoom, err := parseFloat("capture.max_zoom", o.CaptureMaxZoom)
	if err != nil {
		return nil, err
	}
	ladder, err := o.Ladder()
	if err != nil {
		return nil, err
	}

	return capture.NewController(capture.Options{
		Platform:     platform,
		Secure:       secure,
		Ladder:       ladder,
		Timeouts:     policy,
		AttemptPause: pause,
		CropFraction: crop,
		JPEGQuality:  o.CaptureJpegQuality,
		MaxZoom:      maxZoom,
		Events:       pub,
		Logger:       logging.GetLogger("capture"),
	})
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func parseFloat(key, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
