package process

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/palmcam/internal/logging"
)

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (ffmpeg, etc.)
type LogParser func(line string) (level, msg string)

// Default shutdown timings.
const (
	DefaultGracefulTimeout = 2 * time.Second
	DefaultKillTimeout     = 2 * time.Second
)

// ErrAlreadyStarted is returned by a second Start call.
var ErrAlreadyStarted = errors.New("process already started")

// Process manages the lifecycle of one subprocess.
type Process struct {
	id     string
	binary string
	args   []string

	logger        logging.Logger
	processLogger logging.Logger // logger for process output (nil = use logger)
	logParser     LogParser      // parses process output for log level (nil = no parsing)

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdout    *os.File
	state     State
	startedAt time.Time
	exitCode  int
	lastErr   error
	killed    bool

	done     chan struct{}
	stopOnce sync.Once
}

// New creates a process for binary and args. Nothing runs until Start.
func New(id, binary string, args []string, logger logging.Logger) *Process {
	return &Process{
		id:              id,
		binary:          binary,
		args:            append([]string(nil), args...),
		logger:          logger,
		gracefulTimeout: DefaultGracefulTimeout,
		killTimeout:     DefaultKillTimeout,
		state:           StateIdle,
		done:            make(chan struct{}),
	}
}

// SetLogParser sets a custom logger and log parser for process output.
func (p *Process) SetLogParser(logger logging.Logger, parser LogParser) {
	p.processLogger = logger
	p.logParser = parser
}

// SetTimeouts overrides the graceful and kill timeouts.
func (p *Process) SetTimeouts(graceful, kill time.Duration) {
	if graceful > 0 {
		p.gracefulTimeout = graceful
	}
	if kill > 0 {
		p.killTimeout = kill
	}
}

// Command returns the command line for logs.
func (p *Process) Command() string {
	return strings.Join(append([]string{p.binary}, p.args...), " ")
}

// Start launches the subprocess and returns its stdout. The reader reaches
// EOF when the process exits and is closed by Stop.
func (p *Process) Start() (io.Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return nil, ErrAlreadyStarted
	}
	if p.binary == "" {
		p.state = StateError
		p.lastErr = errors.New("empty command")
		close(p.done)
		return nil, p.lastErr
	}

	// An os.Pipe keeps stdout readable independently of cmd.Wait.
	pr, pw, err := os.Pipe()
	if err != nil {
		p.fail(err)
		return nil, err
	}

	cmd := exec.Command(p.binary, p.args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdout = pw
	cmd.Stderr = &lineWriter{emit: p.logLine}
	// Orphaned children may hold stderr open after the main process exits
	cmd.WaitDelay = p.killTimeout

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		p.logger.Error("Failed to start process", "id", p.id, "error", err, "command", p.Command())
		p.fail(err)
		return nil, err
	}
	pw.Close()

	p.cmd = cmd
	p.stdout = pr
	p.state = StateRunning
	p.startedAt = time.Now()
	p.logger.Info("Process started", "id", p.id, "pid", cmd.Process.Pid, "command", p.Command())

	go p.wait()
	return pr, nil
}

// fail records a start failure. Callers hold mu.
func (p *Process) fail(err error) {
	p.state = StateError
	p.lastErr = err
	p.exitCode = 1
	close(p.done)
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	if w, ok := p.cmd.Stderr.(*lineWriter); ok {
		w.flush()
	}

	p.mu.Lock()
	p.exitCode = exitCodeFromError(err)
	if p.killed {
		p.exitCode = 137
	}
	if err != nil && p.state != StateStopping {
		p.lastErr = err
	}
	p.state = StateExited
	code := p.exitCode
	p.mu.Unlock()

	p.logger.Info("Process exited", "id", p.id, "exit_code", code)
	close(p.done)
}

// Done is closed once the process has exited or failed to start.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitCode returns the exit code, valid after Done is closed.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// State returns the current process state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Info returns a snapshot of the process.
func (p *Process) Info() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	info := Info{
		ID:        p.id,
		State:     p.state,
		StartedAt: p.startedAt,
		ExitCode:  p.exitCode,
		LastError: p.lastErr,
	}
	if p.cmd != nil && p.cmd.Process != nil {
		info.PID = p.cmd.Process.Pid
	}
	return info
}

// Stop shuts the process down and returns its exit code. Concurrent and
// repeated calls wait for the same shutdown.
func (p *Process) Stop() int {
	p.stopOnce.Do(p.stop)
	<-p.done
	return p.ExitCode()
}

func (p *Process) stop() {
	p.mu.Lock()
	switch p.state {
	case StateIdle:
		p.state = StateExited
		close(p.done)
		p.mu.Unlock()
		return
	case StateRunning:
		p.state = StateStopping
	}
	cmd, stdout := p.cmd, p.stdout
	p.mu.Unlock()

	if cmd == nil {
		return
	}
	defer stdout.Close()

	select {
	case <-p.done:
		return
	default:
	}

	p.logger.Debug("Sending SIGINT to process", "id", p.id, "pid", cmd.Process.Pid)
	if err := cmd.Process.Signal(syscall.SIGINT); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Warn("Failed to send SIGINT", "id", p.id, "error", err)
	}

	select {
	case <-p.done:
		return
	case <-time.After(p.gracefulTimeout):
	}

	p.logger.Warn("Graceful shutdown timeout, forcing kill", "id", p.id, "timeout", p.gracefulTimeout)
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	// Setpgid made the child a group leader; take the whole group down
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Error("Failed to kill process", "id", p.id, "error", err)
		}
	}

	select {
	case <-p.done:
	case <-time.After(p.killTimeout):
		p.logger.Error("Process did not exit after kill signal", "id", p.id)
	}
}

// exitCodeFromError maps a Wait error to a shell-style exit code.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// logLine routes one stderr line through the parser to the process logger.
func (p *Process) logLine(line string) {
	logger := p.processLogger
	if logger == nil {
		logger = p.logger
	}

	level, msg := "info", line
	if p.logParser != nil {
		level, msg = p.logParser(line)
	}

	switch level {
	case "panic", "fatal", "error":
		logger.Error(msg, "id", p.id)
	case "warning":
		logger.Warn(msg, "id", p.id)
	case "verbose", "debug", "trace":
		logger.Debug(msg, "id", p.id)
	default:
		logger.Info(msg, "id", p.id)
	}
}

// lineWriter splits written bytes into lines. exec copies stderr into it
// from a single goroutine.
type lineWriter struct {
	emit func(string)
	buf  bytes.Buffer
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// partial line; keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			w.emit(line)
		}
	}
	return len(b), nil
}

func (w *lineWriter) flush() {
	if line := strings.TrimSpace(w.buf.String()); line != "" {
		w.emit(line)
	}
	w.buf.Reset()
}

// ParseCommand splits a configured command such as `nice -n 10 ffmpeg`
// into arguments. It handles quoted strings and basic escaping.
func ParseCommand(command string) ([]string, error) {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := rune(0)

	runes := []rune(strings.TrimSpace(command))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' || r == '\'':
			switch {
			case !inQuote:
				inQuote = true
				quoteChar = r
			case r == quoteChar:
				inQuote = false
				quoteChar = 0
			default:
				current.WriteRune(r)
			}
		case (r == ' ' || r == '\t') && !inQuote:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		case r == '\\' && i+1 < len(runes):
			i++
			current.WriteRune(runes[i])
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, fmt.Errorf("unclosed quote in command")
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args, nil
}
