package process

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProcess creates a shell process with short timeouts for testing.
func newTestProcess(script string) *Process {
	p := New("test", "sh", []string{"-c", script}, testLogger())
	p.SetTimeouts(100*time.Millisecond, 100*time.Millisecond)
	return p
}

func waitDone(t *testing.T, p *Process, timeout time.Duration) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(timeout):
		t.Fatal("timeout waiting for process to exit")
	}
}

// recordingLogger captures process output lines by level.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingLogger) record(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, level+":"+msg)
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.record("debug", msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.record("info", msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.record("warn", msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.record("error", msg) }

func (r *recordingLogger) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestProcess("trap 'exit 0' INT TERM; while :; do sleep 0.05; done")
	p.SetTimeouts(time.Second, 0)

	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	if code := p.Stop(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	if p.State() != StateExited {
		t.Errorf("expected state exited, got %s", p.State())
	}
}

func TestForceKillOnTimeout(t *testing.T) {
	p := newTestProcess("trap '' INT; sleep 10")
	p.SetTimeouts(50*time.Millisecond, 500*time.Millisecond)

	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if code := p.Stop(); code != 137 {
		t.Errorf("expected exit code 137, got %d", code)
	}
}

func TestStdoutStream(t *testing.T) {
	p := newTestProcess("printf 'hello'; printf ' world'")

	stdout, err := p.Start()
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	data, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("expected %q, got %q", "hello world", data)
	}

	waitDone(t, p, time.Second)
	if code := p.ExitCode(); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
	p.Stop()
}

func TestStderrLogLevels(t *testing.T) {
	rec := &recordingLogger{}
	p := newTestProcess("echo '[error] bad frame' >&2; echo '[warning] slow' >&2; printf 'tail' >&2")
	p.SetLogParser(rec, func(line string) (string, string) {
		if level, msg, ok := strings.Cut(strings.TrimPrefix(line, "["), "] "); ok {
			return level, msg
		}
		return "info", line
	})

	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, p, time.Second)

	want := []string{"error:bad frame", "warn:slow", "info:tail"}
	got := rec.snapshot()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestProcessExitWithError(t *testing.T) {
	p := newTestProcess("exit 3")
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitDone(t, p, time.Second)

	if code := p.ExitCode(); code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}
	if p.Info().LastError == nil {
		t.Error("expected last error for non-zero exit")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	p := newTestProcess("exec sleep 10")
	p.SetTimeouts(time.Second, 0)
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = p.Stop()
		}()
	}
	wg.Wait()

	for i, c := range codes {
		if c != codes[0] {
			t.Errorf("Stop %d returned %d, first returned %d", i, c, codes[0])
		}
	}
	// sleep dies from the default SIGINT disposition
	if codes[0] != 130 {
		t.Errorf("expected exit code 130, got %d", codes[0])
	}
}

func TestStopBeforeStart(t *testing.T) {
	p := newTestProcess("true")
	p.Stop()

	waitDone(t, p, 100*time.Millisecond)
	if _, err := p.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartNonExistentBinary(t *testing.T) {
	p := New("test", "nonexistent_command_12345", nil, testLogger())

	if _, err := p.Start(); err == nil {
		t.Fatal("expected start error")
	}
	if p.State() != StateError {
		t.Errorf("expected state error, got %s", p.State())
	}
	if code := p.Stop(); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestStartTwice(t *testing.T) {
	p := newTestProcess("sleep 1")
	if _, err := p.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Stop()

	if _, err := p.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if info := p.Info(); info.PID == 0 || info.State != StateRunning {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"ffmpeg", []string{"ffmpeg"}, false},
		{"nice -n 10 ffmpeg", []string{"nice", "-n", "10", "ffmpeg"}, false},
		{`"/opt/my ffmpeg/bin/ffmpeg" -v`, []string{"/opt/my ffmpeg/bin/ffmpeg", "-v"}, false},
		{`a\ b c`, []string{"a b", "c"}, false},
		{"  spaced\targs  ", []string{"spaced", "args"}, false},
		{`"unterminated`, nil, true},
		{"", nil, false},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCommand(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("ParseCommand(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
