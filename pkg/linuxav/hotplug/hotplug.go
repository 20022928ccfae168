// Package hotplug provides pure Go device hotplug monitoring using netlink.
//
// This package monitors kernel device events without cgo by directly listening
// to NETLINK_KOBJECT_UEVENT messages from the kernel.
package hotplug

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
)

// ErrUnsupported is returned by NewMonitor on systems without netlink.
var ErrUnsupported = errors.New("hotplug: not supported on this platform")

// Action constants for device events.
const (
	ActionAdd    = "add"
	ActionRemove = "remove"
	ActionChange = "change"
	ActionBind   = "bind"
	ActionUnbind = "unbind"
)

// Subsystems a capture service cares about.
const (
	SubsystemVideo4Linux = "video4linux"
	SubsystemUSB         = "usb"
)

// Event represents a kernel device event.
type Event struct {
	Action    string            // "add", "remove", "change", etc.
	KObj      string            // Kernel object path: /devices/pci0000:00/...
	Subsystem string            // "video4linux", "usb", etc.
	DevType   string            // Device type if available
	DevName   string            // Device name (e.g., "video0")
	DevPath   string            // Sysfs path without the /sys prefix
	Env       map[string]string // All environment variables from the event
}

// DeviceNode returns the /dev path of the event's device, or "" when the
// event carries no device name.
func (e Event) DeviceNode() string {
	if e.DevName == "" {
		return ""
	}
	if strings.HasPrefix(e.DevName, "/dev/") {
		return e.DevName
	}
	return "/dev/" + e.DevName
}

// Topology reports whether the event adds or removes a device.
func (e Event) Topology() bool {
	return e.Action == ActionAdd || e.Action == ActionRemove
}

// libudevMagic prefixes messages re-broadcast by udevd.
var libudevMagic = []byte("libudev\x00")

// ParseUEvent parses a kernel uevent message.
// Format: "ACTION@KOBJ\0KEY=VALUE\0KEY=VALUE\0..."
// udevd messages, which carry a binary header and no ACTION@KOBJ line,
// are accepted too.
func ParseUEvent(data []byte) *Event {
	if len(data) == 0 {
		return nil
	}
	if bytes.HasPrefix(data, libudevMagic) {
		return parseLibudev(data)
	}

	header, rest, _ := bytes.Cut(data, []byte{0})
	action, kobj, ok := strings.Cut(string(header), "@")
	if !ok || action == "" {
		return nil
	}

	event := &Event{Action: action, KObj: kobj}
	parseProperties(event, rest)
	return event
}

// parseLibudev reads the properties block located by the udevd header:
// magic, header size, properties offset, properties length.
func parseLibudev(data []byte) *Event {
	const headerMin = 24
	if len(data) < headerMin {
		return nil
	}
	off := binary.NativeEndian.Uint32(data[16:20])
	n := binary.NativeEndian.Uint32(data[20:24])
	if uint64(off)+uint64(n) > uint64(len(data)) {
		return nil
	}

	event := &Event{}
	parseProperties(event, data[off:off+n])
	event.Action = event.Env["ACTION"]
	event.KObj = event.DevPath
	if event.Action == "" {
		return nil
	}
	return event
}

func parseProperties(event *Event, data []byte) {
	event.Env = make(map[string]string)
	for _, part := range bytes.Split(data, []byte{0}) {
		key, value, ok := strings.Cut(string(part), "=")
		if !ok || key == "" {
			continue
		}
		event.Env[key] = value

		switch key {
		case "SUBSYSTEM":
			event.Subsystem = value
		case "DEVTYPE":
			event.DevType = value
		case "DEVNAME":
			event.DevName = value
		case "DEVPATH":
			event.DevPath = value
		}
	}
}
