//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// GetFormats returns all supported pixel formats for a device.
func GetFormats(devicePath string) ([]FormatInfo, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)
	return enumFormats(fd)
}

// GetFrameSizes returns the frame sizes a device offers for a pixel format.
// Drivers without size enumeration yield an empty slice.
func GetFrameSizes(devicePath string, pixelFormat uint32) ([]FrameSize, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)
	return enumFrameSizes(fd, pixelFormat)
}

// GetResolutions returns discrete resolutions for a device and pixel format.
// Stepwise ranges are expanded to the common sizes they contain.
func GetResolutions(devicePath string, pixelFormat uint32) ([]Resolution, error) {
	sizes, err := GetFrameSizes(devicePath, pixelFormat)
	if err != nil {
		return nil, err
	}
	var out []Resolution
	for _, s := range sizes {
		if s.Discrete() {
			out = append(out, Resolution{Width: s.MinWidth, Height: s.MinHeight})
			continue
		}
		for _, r := range commonResolutions {
			if s.Contains(r.Width, r.Height) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// GetFramerates returns all supported framerates for a device, format, and resolution.
func GetFramerates(devicePath string, pixelFormat uint32, width, height uint32) ([]Framerate, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)
	return enumFramerates(fd, pixelFormat, width, height)
}

// ListCandidates enumerates every format and frame size of a device in one
// open, suitable for SelectMode.
func ListCandidates(devicePath string) ([]Candidate, error) {
	fd, err := openDevice(devicePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}
	defer closeDevice(fd)

	formats, err := enumFormats(fd)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, f := range formats {
		sizes, err := enumFrameSizes(fd, f.PixelFormat)
		if err != nil {
			return nil, err
		}
		if len(sizes) == 0 {
			// No enumeration support; accept any size.
			sizes = []FrameSize{{MaxWidth: ^uint32(0), MaxHeight: ^uint32(0)}}
		}
		for _, s := range sizes {
			c := Candidate{PixelFormat: f.PixelFormat, Emulated: f.Emulated, Size: s}
			if s.Discrete() {
				// Interval enumeration failures leave the rate unconstrained.
				c.Rates, _ = enumFramerates(fd, f.PixelFormat, s.MinWidth, s.MinHeight)
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func enumFormats(fd int) ([]FormatInfo, error) {
	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{index: i, typ: bufTypeVideoCapture}
		if err := ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break // End of enumeration
			}
			return nil, fmt.Errorf("failed to enumerate format %d: %w", i, err)
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			FormatName:  cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
	return formats, nil
}

func enumFrameSizes(fd int, pixelFormat uint32) ([]FrameSize, error) {
	var sizes []FrameSize
	for i := uint32(0); ; i++ {
		e := v4l2Frmsizeenum{index: i, pixelFormat: pixelFormat}
		if err := ioctl(fd, vidiocEnumFramesizes, unsafe.Pointer(&e)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			if errors.Is(err, syscall.ENOTTY) {
				return []FrameSize{}, nil
			}
			return nil, fmt.Errorf("failed to enumerate frame size %d: %w", i, err)
		}

		u := e.union
		switch e.typ {
		case frmTypeDiscrete:
			w, h := u.minWidth, u.maxWidth
			sizes = append(sizes, FrameSize{MinWidth: w, MaxWidth: w, MinHeight: h, MaxHeight: h})
		case frmTypeContinuous, frmTypeStepwise:
			s := FrameSize{
				MinWidth: u.minWidth, MaxWidth: u.maxWidth, StepWidth: u.stepWidth,
				MinHeight: u.minHeight, MaxHeight: u.maxHeight, StepHeight: u.stepHeight,
			}
			if e.typ == frmTypeContinuous {
				s.StepWidth, s.StepHeight = 1, 1
			}
			return append(sizes, s), nil // Only one stepwise entry
		}
	}
	return sizes, nil
}

func enumFramerates(fd int, pixelFormat, width, height uint32) ([]Framerate, error) {
	var rates []Framerate
	for i := uint32(0); ; i++ {
		e := v4l2Frmivalenum{index: i, pixelFormat: pixelFormat, width: width, height: height}
		if err := ioctl(fd, vidiocEnumFrameintervals, unsafe.Pointer(&e)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("failed to enumerate frame interval %d: %w", i, err)
		}

		switch e.typ {
		case frmTypeDiscrete:
			rates = append(rates, Framerate{
				Numerator:   e.union.min.numerator,
				Denominator: e.union.min.denominator,
			})
		case frmTypeContinuous, frmTypeStepwise:
			// The fastest rate is the shortest interval.
			minFPS := Framerate{Numerator: e.union.max.numerator, Denominator: e.union.max.denominator}.FPS()
			maxFPS := Framerate{Numerator: e.union.min.numerator, Denominator: e.union.min.denominator}.FPS()
			for _, r := range commonFramerates {
				if r.FPS() >= minFPS && r.FPS() <= maxFPS {
					rates = append(rates, r)
				}
			}
			return rates, nil
		}
	}
	return rates, nil
}
