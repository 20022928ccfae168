// Package logging sets up palmcam's slog loggers.
//
// Every module asks for its own logger and gets the level configured for it:
//
//	logger := logging.GetLogger("capture")
//	logger.Info("Profile accepted", "profile", "hd-environment")
//
// Records go to stdout (text or JSON), to the systemd journal when its
// socket is reachable, and to an in-memory ring buffer. The buffer backs
// the diagnostics endpoint and the log SSE stream; SetLogCallback sees each
// new entry as it is buffered.
//
// # Levels
//
// Level sets the default, Modules overrides it per module:
//
//	[logging]
//	level = "info"
//	capture = "debug"
//	ffmpeg = "warn"
//
// SetModuleLevel changes a module at runtime. Loggers handed out before
// Initialize follow the configured level once it runs.
//
// # Journal
//
// Attributes become journal fields, uppercased with groups joined by
// underscores:
//
//	journalctl -t palmcam MODULE=capture
//	journalctl -t palmcam -p warning --since "10 min ago"
package logging
