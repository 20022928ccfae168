package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/smazurov/palmcam/internal/logging"
)

func TestReadLoggingConfigRejectsSyntax(t *testing.T) {
	path := writeTOML(t, "[logging\nlevel = \"debug\"\n")
	if _, err := ReadLoggingConfig(path); err == nil {
		t.Error("Expected parse error for malformed file")
	}
}

func TestReadLoggingConfigBufferSize(t *testing.T) {
	path := writeTOML(t, "[logging]\nbuffer_size = 250\nplatform = \"debug\"\n")
	cfg, err := ReadLoggingConfig(path)
	if err != nil {
		t.Fatalf("ReadLoggingConfig failed: %v", err)
	}
	if cfg.BufferSize != 250 {
		t.Errorf("Expected buffer size 250, got %d", cfg.BufferSize)
	}
	if _, ok := cfg.Modules["buffer_size"]; ok {
		t.Error("Expected buffer_size not to be treated as a module")
	}
	if cfg.Modules["platform"] != "debug" {
		t.Errorf("Expected platform=debug, got %v", cfg.Modules)
	}
}

func TestWatchLoggingAppliesLevels(t *testing.T) {
	logging.Initialize(logging.Config{Level: "info"})
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[logging]\nlevel = \"info\"\n")

	w, err := WatchLogging(path, newTestLogger())
	if err != nil {
		t.Fatalf("WatchLogging failed: %v", err)
	}
	defer func() { _ = w.Stop() }()
	time.Sleep(50 * time.Millisecond)

	logger := logging.GetLogger("devices")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Expected debug disabled before reload")
	}

	writeFile(t, path, "[logging]\nlevel = \"info\"\ndevices = \"debug\"\n")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("Expected devices debug enabled after config change")
}
