package led

import "log/slog"

// noop is used on hosts without controllable LEDs.
type noop struct {
	logger *slog.Logger
}

func newNoop(logger *slog.Logger) *noop {
	return &noop{logger: logger}
}

func (n *noop) Set(name string, pattern Pattern) error {
	n.logger.Debug("LED control not available", "led", name, "pattern", pattern)
	return nil
}

func (n *noop) Available() []string { return []string{} }

func (n *noop) Primary() string { return "" }
