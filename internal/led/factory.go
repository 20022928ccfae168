package led

import (
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

type board struct {
	match   string
	leds    map[string]string
	primary string
}

var boards = []board{
	{match: "NanoPC-T6", leds: map[string]string{"user": "usr_led", "system": "sys_led"}, primary: "user"},
	{match: "Orange Pi", leds: map[string]string{"blue": "blue_led", "green": "green_led"}, primary: "green"},
	{match: "Raspberry Pi", leds: map[string]string{"act": "ACT"}, primary: "act"},
}

// New detects the board and returns its LED controller. Unknown boards get
// a controller that only logs.
func New(logger *slog.Logger) Controller {
	return forModel(detectBoard(deviceTreeModelPath), sysfsLEDPath, logger)
}

func forModel(model, root string, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	for _, b := range boards {
		if strings.Contains(model, b.match) {
			logger.Info("Using sysfs LED controller", "board_model", model, "primary", b.primary)
			return newSysfs(root, b.leds, b.primary)
		}
	}
	logger.Info("No LED support detected, using no-op controller", "board_model", model)
	return newNoop(logger)
}

// detectBoard reads the device tree model, which is NUL terminated.
func detectBoard(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}
	return strings.TrimRight(string(data), "\x00")
}
