package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logBuffer = nil
	logCallback = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"capture": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"capture", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("ffmpeg")
	handlerBefore := loggerBefore.Handler()
	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"ffmpeg": "debug"}})

	if GetLogger("ffmpeg") == loggerBefore {
		// Initialize rebuilds the handler chain, so the cached logger is replaced
		t.Error("Expected a rebuilt logger after Initialize")
	}
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Old handler should follow the updated LevelVar")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	logger := GetLogger("devices")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Expected debug disabled at info")
	}
	if err := SetModuleLevel("devices", "debug"); err != nil {
		t.Fatalf("SetModuleLevel failed: %v", err)
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug enabled after SetModuleLevel")
	}
	if err := SetModuleLevel("devices", "loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestBufferAndCallback(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug", BufferSize: 10})

	var mu sync.Mutex
	var seen []LogEntry
	SetLogCallback(func(e LogEntry) {
		mu.Lock()
		seen = append(seen, e)
		mu.Unlock()
	})
	defer SetLogCallback(nil)

	GetLogger("capture").Info("Session active", "profile", "hd-environment", "retry_count", 0)

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 buffered entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Module != "capture" || e.Level != "info" || e.Message != "Session active" {
		t.Errorf("Unexpected entry %+v", e)
	}
	if e.Attributes["profile"] != "hd-environment" {
		t.Errorf("Expected profile attribute, got %v", e.Attributes)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 {
		t.Errorf("Expected callback once, got %d", len(seen))
	}
}

func TestBufferHandler_GroupsAndErrors(t *testing.T) {
	resetState()
	Initialize(Config{Level: "debug"})

	logger := slog.New(NewBufferHandler(slog.LevelDebug)).With("module", "api").WithGroup("req")
	logger.Warn("Request failed", "error", errors.New("boom"), "took", 15*time.Millisecond)

	entries := GetBuffer().ReadAll()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	attrs := entries[0].Attributes
	if attrs["req.error"] != "boom" {
		t.Errorf("Expected flattened error, got %v", attrs)
	}
	if attrs["req.took"] != "15ms" {
		t.Errorf("Expected duration string, got %v", attrs["req.took"])
	}
	if entries[0].Level != "warn" {
		t.Errorf("Expected warn, got %s", entries[0].Level)
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}

	logger.Info("both")
	if count := strings.Count(buf.String(), "both"); count != 2 {
		t.Errorf("Expected info message from both handlers, got %d", count)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestFormatLogLine(t *testing.T) {
	entry := LogEntry{
		Timestamp:  time.Date(2025, 1, 9, 10, 30, 0, 0, time.UTC),
		Level:      "warn",
		Module:     "capture",
		Message:    "Acquisition failed",
		Attributes: map[string]any{"kind": "no_device_found", "b": 1},
	}
	got := FormatLogLine(entry)
	want := "2025-01-09T10:30:00Z [WARN] [capture] Acquisition failed b=1 kind=no_device_found"
	if got != want {
		t.Errorf("FormatLogLine() = %q, want %q", got, want)
	}
}

func TestApplyLevels(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Modules: map[string]string{"capture": "debug"}})

	capture := GetLogger("capture")
	platform := GetLogger("platform")

	ApplyLevels(Config{Level: "warn", Modules: map[string]string{"platform": "debug"}})

	ctx := context.Background()
	if capture.Handler().Enabled(ctx, slog.LevelInfo) {
		t.Error("Expected capture to fall back to the warn default")
	}
	if !platform.Handler().Enabled(ctx, slog.LevelDebug) {
		t.Error("Expected platform debug after ApplyLevels")
	}
	if late := GetLogger("api"); late.Handler().Enabled(ctx, slog.LevelInfo) {
		t.Error("Expected loggers created later to use the new default")
	}
}
