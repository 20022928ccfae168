package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/palmcam/internal/capture"
	"github.com/smazurov/palmcam/internal/events"
)

// Subscriber is the subscription half of the event bus.
type Subscriber interface {
	Subscribe(handler any) func()
}

// PatternFor returns the indicator pattern for a session state. The LED is
// lit whenever the camera may be held.
func PatternFor(state capture.State) Pattern {
	switch state {
	case capture.StateActive:
		return PatternSolid
	case capture.StateStarting:
		return PatternBlink
	case capture.StateError:
		return PatternHeartbeat
	default:
		return PatternOff
	}
}

// Indicator mirrors the capture session state on one LED.
type Indicator struct {
	controller Controller
	name       string
	logger     *slog.Logger

	mu      sync.Mutex
	current Pattern
}

// NewIndicator drives the named LED, or the board's primary LED when name
// is empty. It returns nil if there is no LED to drive.
func NewIndicator(controller Controller, name string, logger *slog.Logger) *Indicator {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		name = controller.Primary()
	}
	if name == "" {
		return nil
	}
	return &Indicator{controller: controller, name: name, logger: logger}
}

// Attach switches the LED off and follows session transitions until the
// returned detach func is called. Detaching switches the LED off again.
func (i *Indicator) Attach(bus Subscriber) func() {
	i.apply(PatternOff)
	unsub := bus.Subscribe(func(e events.SessionStateChangedEvent) {
		i.apply(PatternFor(capture.State(e.To)))
	})
	return func() {
		unsub()
		i.apply(PatternOff)
	}
}

// Current returns the last pattern written.
func (i *Indicator) Current() Pattern {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.current
}

func (i *Indicator) apply(p Pattern) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if p == i.current {
		return
	}
	if err := i.controller.Set(i.name, p); err != nil {
		i.logger.Warn("Failed to set indicator LED", "led", i.name, "pattern", p, "error", err)
		return
	}
	i.logger.Debug("Indicator LED updated", "led", i.name, "pattern", p)
	i.current = p
}
