package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State is the lifecycle state of a child process.
type State int

const (
	// StateCreated means the process exists but has not been started.
	StateCreated State = iota
	// StateRunning means the process is alive.
	StateRunning
	// StateExited means the process exited on its own.
	StateExited
	// StateKilled means the process was terminated by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Sentinel errors.
var (
	// ErrNotStarted is returned for operations that need a running process.
	ErrNotStarted = errors.New("process not started")

	// ErrAlreadyStarted is returned when starting a process twice.
	ErrAlreadyStarted = errors.New("process already started")
)

// Child is a supervised external process with piped standard streams.
//
// A Child wraps an exec.Cmd with exit tracking and signal helpers. A
// language server is run as a Child: its stdin/stdout carry the protocol
// stream and stderr carries free-form server logging. Child is safe for
// concurrent use.
type Child struct {
	// ID uniquely identifies this process within its supervisor.
	ID string

	// Name is a human-readable label (typically the server command).
	Name string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Stdin is the write end of the process's standard input.
	Stdin io.WriteCloser

	// Stdout is the read end of the process's standard output.
	Stdout io.ReadCloser

	// Stderr is the read end of the process's standard error.
	Stderr io.ReadCloser

	// Started is when the process was launched.
	Started time.Time

	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32

	mu      sync.RWMutex
	exitErr error

	reapOnce sync.Once
}

func newChild(id, name string, cmd *exec.Cmd) *Child {
	c := &Child{
		ID:   id,
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	c.state.Store(int32(StateCreated))
	c.exitCode.Store(-1)
	return c
}

// State returns the current lifecycle state.
func (c *Child) State() State {
	return State(c.state.Load())
}

// ExitCode returns the exit code, or -1 while the process is alive.
func (c *Child) ExitCode() int {
	return int(c.exitCode.Load())
}

// ExitError returns the error from waiting on the process, if any.
func (c *Child) ExitError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exitErr
}

// Done returns a channel closed when the process exits.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// IsRunning reports whether the process is alive.
func (c *Child) IsRunning() bool {
	return c.State() == StateRunning
}

// PID returns the OS process ID, or -1 before start.
func (c *Child) PID() int {
	if c.Cmd.Process == nil {
		return -1
	}
	return c.Cmd.Process.Pid
}

// Signal delivers a signal to the process.
func (c *Child) Signal(sig os.Signal) error {
	if !c.IsRunning() || c.Cmd.Process == nil {
		return ErrNotStarted
	}
	return c.Cmd.Process.Signal(sig)
}

// signalGroup delivers a signal to the whole process group, so helpers the
// server forked receive it too. Falls back to the direct child if the group
// send fails.
func (c *Child) signalGroup(sig syscall.Signal) error {
	if !c.IsRunning() || c.Cmd.Process == nil {
		return ErrNotStarted
	}
	if err := syscall.Kill(-c.Cmd.Process.Pid, sig); err != nil {
		return c.Cmd.Process.Signal(sig)
	}
	return nil
}

// Terminate sends SIGTERM to the process group.
func (c *Child) Terminate() error {
	return c.signalGroup(syscall.SIGTERM)
}

// Kill sends SIGKILL to the process group.
func (c *Child) Kill() error {
	return c.signalGroup(syscall.SIGKILL)
}

// start launches the process. Called by the Supervisor under its lock.
func (c *Child) start() error {
	if c.State() != StateCreated {
		return ErrAlreadyStarted
	}

	// Run the child in its own process group so Terminate and Kill reach
	// any processes it spawns.
	if c.Cmd.SysProcAttr == nil {
		c.Cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.Cmd.SysProcAttr.Setpgid = true

	if err := c.Cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Name, err)
	}

	c.Started = time.Now()
	c.state.Store(int32(StateRunning))

	go c.reap()
	return nil
}

// reap waits for the process and records how it ended.
func (c *Child) reap() {
	c.reapOnce.Do(func() {
		err := c.Cmd.Wait()

		c.mu.Lock()
		c.exitErr = err
		c.mu.Unlock()

		code := 0
		state := StateExited
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					state = StateKilled
				}
			} else {
				code = -1
			}
		}

		c.exitCode.Store(int32(code))
		c.state.Store(int32(state))
		close(c.done)
	})
}

// CloseStreams closes the piped streams without touching the process.
func (c *Child) CloseStreams() error {
	var errs []error
	if c.Stdin != nil {
		if err := c.Stdin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdin: %w", err))
		}
	}
	if c.Stdout != nil {
		if err := c.Stdout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stdout: %w", err))
		}
	}
	if c.Stderr != nil {
		if err := c.Stderr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stderr: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Runtime returns how long the process has been (or was) running.
func (c *Child) Runtime() time.Duration {
	if c.Started.IsZero() {
		return 0
	}
	return time.Since(c.Started)
}
