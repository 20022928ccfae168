package led

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const sysfsLEDPath = "/sys/class/leds"

// Blink half-period written to the timer trigger.
const blinkDelayMs = "250"

// sysfs drives LEDs through the kernel LED class.
type sysfs struct {
	root    string
	leds    map[string]string // name -> sysfs node
	primary string
}

func newSysfs(root string, leds map[string]string, primary string) *sysfs {
	return &sysfs{root: root, leds: leds, primary: primary}
}

// Set maps pattern onto kernel triggers: off and solid use manual
// brightness, blink uses the timer trigger.
func (s *sysfs) Set(name string, pattern Pattern) error {
	node, ok := s.leds[name]
	if !ok {
		return fmt.Errorf("LED %q not supported on this board", name)
	}
	dir := filepath.Join(s.root, node)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("LED %q not found at %s: %w", name, dir, err)
	}

	switch pattern {
	case PatternOff:
		return s.manual(dir, "0")
	case PatternSolid:
		return s.manual(dir, "1")
	case PatternBlink:
		if err := write(dir, "trigger", "timer"); err != nil {
			return err
		}
		// delay_on/delay_off appear once the timer trigger is active
		if err := write(dir, "delay_on", blinkDelayMs); err != nil {
			return err
		}
		return write(dir, "delay_off", blinkDelayMs)
	case PatternHeartbeat:
		return write(dir, "trigger", "heartbeat")
	default:
		return fmt.Errorf("unknown LED pattern %q", pattern)
	}
}

func (s *sysfs) manual(dir, brightness string) error {
	if err := write(dir, "trigger", "none"); err != nil {
		return err
	}
	return write(dir, "brightness", brightness)
}

func write(dir, attr, value string) error {
	if err := os.WriteFile(filepath.Join(dir, attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("failed to set LED %s: %w", attr, err)
	}
	return nil
}

func (s *sysfs) Available() []string {
	names := make([]string, 0, len(s.leds))
	for name := range s.leds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *sysfs) Primary() string { return s.primary }
