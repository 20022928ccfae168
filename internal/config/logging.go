package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/palmcam/internal/logging"
)

// ReadLoggingConfig reads the [logging] table of a config file. Keys other
// than level, format and buffer_size are per-module levels. A missing file
// yields the defaults.
func ReadLoggingConfig(path string) (logging.Config, error) {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var raw struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for key, value := range raw.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case int64:
			if key == "buffer_size" {
				cfg.BufferSize = int(v)
			}
		}
	}
	return cfg, nil
}

// LoggingWatcher re-applies log levels when the config file changes.
type LoggingWatcher = Watcher[logging.Config]

// WatchLogging applies the levels of every parseable revision of the
// config file. Output format and buffer size still need a restart.
func WatchLogging(path string, logger *slog.Logger) (*LoggingWatcher, error) {
	w := NewConfigWatcher(path, ReadLoggingConfig, logger)
	w.OnReload(func(cfg logging.Config) {
		logging.ApplyLevels(cfg)
		w.logger.Info("Applied log levels", "level", cfg.Level, "modules", len(cfg.Modules))
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}
