//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unsafe"
)

const (
	sysfsRoot = "/sys/class/video4linux"
	byIDDir   = "/dev/v4l/by-id"
)

// Supported reports whether the kernel exposes the video4linux class.
func Supported() bool {
	_, err := os.Stat(sysfsRoot)
	return err == nil
}

// FindDevices finds all V4L2 video capture devices on the system.
// Devices that cannot be opened are skipped.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return []DeviceInfo{}, nil
		}
		return nil, fmt.Errorf("failed to read video4linux directory: %w", err)
	}

	devices := []DeviceInfo{}
	for _, entry := range entries {
		info, ok := queryDevice(entry.Name())
		if ok {
			devices = append(devices, info)
		}
	}
	return devices, nil
}

// QueryDevice returns the DeviceInfo for one path such as /dev/video0.
func QueryDevice(devicePath string) (DeviceInfo, error) {
	info, ok := queryDevice(filepath.Base(devicePath))
	if !ok {
		return DeviceInfo{}, fmt.Errorf("%s is not a video capture device", devicePath)
	}
	return info, nil
}

func queryDevice(name string) (DeviceInfo, bool) {
	devicePath := "/dev/" + name
	logger := slog.With("component", "linuxav")

	fd, err := openDevice(devicePath)
	if err != nil {
		logger.Debug("failed to open video device", "path", devicePath, "error", err)
		return DeviceInfo{}, false
	}
	defer closeDevice(fd)

	var c v4l2Capability
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&c)); err != nil {
		logger.Debug("failed to query device capabilities", "path", devicePath, "error", err)
		return DeviceInfo{}, false
	}

	caps := c.capabilities
	if caps&capDeviceCaps != 0 {
		caps = c.deviceCaps
	}
	// Metadata nodes share the driver but cannot capture frames.
	if caps&capVideoCapture == 0 {
		return DeviceInfo{}, false
	}

	index := readSysfsInt(filepath.Join(sysfsRoot, name, "index"))
	stableID := findStableID(name, index)
	if stableID == "" {
		busInfo := cstr(c.busInfo[:])
		if strings.HasPrefix(busInfo, "usb-") {
			stableID = fmt.Sprintf("%s-video-index%d", busInfo, index)
		} else {
			stableID = fmt.Sprintf("platform-%s-video-index%d", busInfo, index)
		}
	}

	return DeviceInfo{
		DevicePath: devicePath,
		DeviceName: cstr(c.card[:]),
		DeviceID:   stableID,
		Caps:       caps,
	}, true
}

// GetDevicePathByID finds the device path for a given stable device ID.
func GetDevicePathByID(deviceID string) (string, error) {
	devices, err := FindDevices()
	if err != nil {
		return "", fmt.Errorf("failed to find devices: %w", err)
	}
	for _, device := range devices {
		if device.DeviceID == deviceID {
			return device.DevicePath, nil
		}
	}
	return "", fmt.Errorf("device with ID %s not found", deviceID)
}

// findStableID looks for a stable ID symlink in /dev/v4l/by-id/
func findStableID(deviceName string, index int) string {
	entries, err := os.ReadDir(byIDDir)
	if err != nil {
		return ""
	}

	suffix := fmt.Sprintf("-video-index%d", index)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		target, err := os.Readlink(filepath.Join(byIDDir, entry.Name()))
		if err != nil {
			continue
		}
		if filepath.Base(target) == deviceName && strings.HasSuffix(entry.Name(), suffix) {
			return entry.Name()
		}
	}
	return ""
}

func readSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	val, _ := strconv.Atoi(strings.TrimSpace(string(data)))
	return val
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
