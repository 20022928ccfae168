package ffmpeg

import (
	"fmt"
	"strings"
)

// OptionType represents a strongly typed FFmpeg input option
type OptionType string

// FFmpeg option constants
const (
	OptionIgnoreErrors       OptionType = "ignore_err"
	OptionWallclockTimestamp OptionType = "wallclock_ts"
	OptionThreadQueue1024    OptionType = "thread_queue_1024"
	OptionThreadQueue4096    OptionType = "thread_queue_4096"
	OptionLowLatency         OptionType = "low_latency"
	OptionNoBuffer           OptionType = "nobuffer"
)

// ExclusiveGroup represents a group of mutually exclusive options
type ExclusiveGroup string

// Exclusive groups.
const (
	GroupThreadQueue ExclusiveGroup = "thread_queue"
)

// Option describes an input flag with metadata
type Option struct {
	Key            OptionType      `json:"key"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	AppDefault     bool            `json:"app_default"`
	ExclusiveGroup *ExclusiveGroup `json:"exclusive_group,omitempty"`
}

var threadQueueGroup = GroupThreadQueue

// AllOptions contains every supported input option
var AllOptions = []Option{
	{
		Key:         OptionIgnoreErrors,
		Name:        "Ignore Errors",
		Description: "Keep decoding past corrupt MJPEG frames from cheap sensors",
		AppDefault:  true,
	},
	{
		Key:         OptionWallclockTimestamp,
		Name:        "Wallclock Timestamps",
		Description: "Use wall clock time for input timestamps",
	},
	{
		Key:            OptionThreadQueue1024,
		Name:           "Thread Queue 1024",
		Description:    "Input packet queue of 1024 packets",
		AppDefault:     true,
		ExclusiveGroup: &threadQueueGroup,
	},
	{
		Key:            OptionThreadQueue4096,
		Name:           "Thread Queue 4096",
		Description:    "Input packet queue of 4096 packets",
		ExclusiveGroup: &threadQueueGroup,
	},
	{
		Key:         OptionLowLatency,
		Name:        "Low Latency",
		Description: "Flush packets immediately and set low_delay",
		AppDefault:  true,
	},
	{
		Key:         OptionNoBuffer,
		Name:        "No Input Buffer",
		Description: "Reduce latency introduced by input buffering",
	},
}

// GetOptionByKey returns option metadata, or nil for unknown keys
func GetOptionByKey(key OptionType) *Option {
	for i := range AllOptions {
		if AllOptions[i].Key == key {
			return &AllOptions[i]
		}
	}
	return nil
}

// GetDefaultOptions returns the options enabled by default
func GetDefaultOptions() []OptionType {
	var defaults []OptionType
	for _, opt := range AllOptions {
		if opt.AppDefault {
			defaults = append(defaults, opt.Key)
		}
	}
	return defaults
}

// ValidateOptions rejects unknown keys and conflicting selections
func ValidateOptions(selected []OptionType) error {
	groups := make(map[ExclusiveGroup]OptionType)
	for _, key := range selected {
		opt := GetOptionByKey(key)
		if opt == nil {
			return fmt.Errorf("unknown ffmpeg option %q", key)
		}
		if opt.ExclusiveGroup == nil {
			continue
		}
		if prev, ok := groups[*opt.ExclusiveGroup]; ok && prev != key {
			return fmt.Errorf("options %q and %q are mutually exclusive", prev, key)
		}
		groups[*opt.ExclusiveGroup] = key
	}
	return nil
}

// ParseOptions converts config strings to option keys
func ParseOptions(values []string) ([]OptionType, error) {
	out := make([]OptionType, 0, len(values))
	for _, v := range values {
		out = append(out, OptionType(strings.TrimSpace(v)))
	}
	if err := ValidateOptions(out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyOptions returns the input flags for the selected options.
// fflags are merged into one flag since ffmpeg keeps only the last.
func applyOptions(options []OptionType) []string {
	var args []string
	var fflags []string

	for _, option := range options {
		switch option {
		case OptionIgnoreErrors:
			args = append(args, "-err_detect", "ignore_err")
		case OptionWallclockTimestamp:
			args = append(args, "-use_wallclock_as_timestamps", "1")
		case OptionThreadQueue1024:
			args = append(args, "-thread_queue_size", "1024")
		case OptionThreadQueue4096:
			args = append(args, "-thread_queue_size", "4096")
		case OptionLowLatency:
			fflags = append(fflags, "+flush_packets")
			args = append(args, "-flags", "+low_delay")
		case OptionNoBuffer:
			fflags = append(fflags, "+nobuffer")
		}
	}

	if len(fflags) > 0 {
		args = append(args, "-fflags", strings.Join(fflags, ""))
	}
	return args
}
