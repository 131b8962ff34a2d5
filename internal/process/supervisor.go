package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Status is the state of the supervised process.
type Status string

// Supervisor states.
const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
)

// Default timings applied by NewSupervisor for zero values.
const (
	DefaultRestartDelay    = 5 * time.Second
	DefaultGracefulTimeout = 10 * time.Second
)

// ErrAlreadyRunning is returned by Start while the process is running.
var ErrAlreadyRunning = errors.New("process: already running")

// Config describes the supervised process.
type Config struct {
	// Name identifies the process in logs.
	Name string

	Binary string
	Args   []string

	// Env is appended to the parent environment. Nil inherits it unchanged.
	Env []string

	// RestartDelay is the wait between an unexpected exit and the restart.
	RestartDelay time.Duration

	// MaxRestarts limits restarts after unexpected exits. 0 disables restarting.
	MaxRestarts int

	// GracefulTimeout is the wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Supervisor runs one child process at a time.
//
// All public methods are thread-safe.
type Supervisor struct {
	cfg    Config
	logger Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	status  Status
	exits   int
	lastErr error
	started time.Time
	stop    chan struct{}
	done    chan struct{}
}

// NewSupervisor creates a stopped supervisor.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = DefaultGracefulTimeout
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}
	return &Supervisor{
		cfg:    cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.logger = logger
}

// Start launches the process and watches it until Stop is called.
// Returns ErrAlreadyRunning if a previous Start has not been stopped.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, s.cfg.Name)
	}

	cmd, err := s.spawnLocked()
	if err != nil {
		s.status = StatusFailed
		s.lastErr = err
		return err
	}

	s.exits = 0
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.watch(cmd, s.stop, s.done)
	return nil
}

func (s *Supervisor) spawnLocked() (*exec.Cmd, error) {
	cmd := exec.Command(s.cfg.Binary, s.cfg.Args...) //nolint:gosec // Binary comes from operator configuration
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if s.cfg.Env != nil {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}

	cmd.Stdout = &outputLogger{s: s, stream: "stdout"}
	cmd.Stderr = &outputLogger{s: s, stream: "stderr"}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.cfg.Name, err)
	}

	s.cmd = cmd
	s.status = StatusRunning
	s.started = time.Now()
	s.logger.Info("process started", "name", s.cfg.Name, "pid", cmd.Process.Pid)
	return cmd, nil
}

// outputLogger logs each chunk written by the child at debug level.
type outputLogger struct {
	s      *Supervisor
	stream string
}

func (w *outputLogger) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.s.logger.Debug("process output", "name", w.s.cfg.Name, "stream", w.stream, "line", line)
	}
	return len(p), nil
}

// watch waits for each exit and restarts the process until stop closes
// or the restart limit is reached.
func (s *Supervisor) watch(cmd *exec.Cmd, stop, done chan struct{}) {
	defer close(done)

	for {
		err := cmd.Wait()

		select {
		case <-stop:
			s.setExited(StatusStopped, nil)
			s.logger.Info("process stopped", "name", s.cfg.Name)
			return
		default:
		}

		s.setExited(StatusFailed, err)
		s.logger.Warn("process exited unexpectedly", "name", s.cfg.Name, "error", err)

		s.mu.Lock()
		s.exits++
		attempt := s.exits
		s.mu.Unlock()

		if attempt > s.cfg.MaxRestarts {
			s.logger.Error("process not restarted", "name", s.cfg.Name, "restarts", attempt-1)
			return
		}

		select {
		case <-stop:
			s.setExited(StatusStopped, nil)
			return
		case <-time.After(s.cfg.RestartDelay):
		}

		s.logger.Info("restarting process", "name", s.cfg.Name, "attempt", attempt)
		s.mu.Lock()
		select {
		case <-stop:
			s.status = StatusStopped
			s.mu.Unlock()
			return
		default:
		}
		next, err := s.spawnLocked()
		if err != nil {
			s.status = StatusFailed
			s.lastErr = err
		}
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("process restart failed", "name", s.cfg.Name, "error", err)
			return
		}
		cmd = next
	}
}

func (s *Supervisor) setExited(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if err != nil {
		s.lastErr = err
	}
}

// Stop terminates the process group and waits for the watcher to finish.
// Stopping a supervisor that is not running is a no-op.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	stop, done, cmd := s.stop, s.done, s.cmd
	if done == nil {
		s.mu.Unlock()
		return nil
	}
	close(stop)
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	var killErr error
	if cmd != nil && cmd.Process != nil && s.Status() == StatusRunning {
		pid := cmd.Process.Pid
		if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
			s.logger.Warn("SIGTERM failed", "name", s.cfg.Name, "error", err)
		}

		select {
		case <-done:
			return nil
		case <-time.After(s.cfg.GracefulTimeout):
			s.logger.Warn("graceful stop timed out, killing", "name", s.cfg.Name)
		}

		if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			killErr = fmt.Errorf("killing %s: %w", s.cfg.Name, err)
		}
	}

	<-done
	return killErr
}

// Running reports whether Start has been called without a matching Stop.
// It stays true after the restart limit is reached.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Status returns the state of the child process.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stats reports the supervised process state.
type Stats struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	PID       int           `json:"pid,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Exits     int           `json:"exits"`
	LastError string        `json:"last_error,omitempty"`
}

// Stats returns a copy of the current process state.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Name: s.cfg.Name, Status: s.status, Exits: s.exits}
	if s.status == StatusRunning && s.cmd != nil && s.cmd.Process != nil {
		st.PID = s.cmd.Process.Pid
		st.Uptime = time.Since(s.started)
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
