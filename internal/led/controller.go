// Package led drives a board LED as a camera-in-use indicator.
package led

// Pattern is what an LED shows.
type Pattern string

const (
	PatternOff       Pattern = "off"
	PatternSolid     Pattern = "solid"
	PatternBlink     Pattern = "blink"
	PatternHeartbeat Pattern = "heartbeat"
)

// Controller abstracts LED hardware across SBC boards.
type Controller interface {
	// Set shows pattern on the named LED.
	Set(name string, pattern Pattern) error

	// Available lists the LED names this board exposes.
	Available() []string

	// Primary is the LED the board dedicates to status, or "" if none.
	Primary() string
}
