package process

import (
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for the supervisor.
var (
	// ErrUnknownProcess is returned when a process ID is not tracked.
	ErrUnknownProcess = errors.New("unknown process")

	// ErrSupervisorClosed is returned after Shutdown has begun.
	ErrSupervisorClosed = errors.New("supervisor closed")
)

// Supervisor owns the external processes spawned by the editor: language
// servers, and nothing else in this repository. It tracks each Child,
// reaps exits, and tears everything down on shutdown.
//
// Supervisor is safe for concurrent use.
type Supervisor struct {
	mu       sync.RWMutex
	children map[string]*Child

	closed atomic.Bool

	// onExit, if set, runs when a supervised process exits.
	onExit func(c *Child)
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithExitCallback sets a callback invoked after a child exits.
func WithExitCallback(fn func(c *Child)) Option {
	return func(s *Supervisor) {
		s.onExit = fn
	}
}

// NewSupervisor creates an empty supervisor.
func NewSupervisor(opts ...Option) *Supervisor {
	s := &Supervisor{
		children: make(map[string]*Child),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches cmd as a supervised child with a generated ID.
//
// Stdin, stdout, and stderr are piped unless the caller configured them.
// If the binary is missing or not executable the process is not tracked
// and the error from exec is returned.
func (s *Supervisor) Start(name string, cmd *exec.Cmd) (*Child, error) {
	return s.StartWithID(uuid.New().String(), name, cmd)
}

// StartWithID launches cmd under a caller-chosen ID.
func (s *Supervisor) StartWithID(id, name string, cmd *exec.Cmd) (*Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorClosed
	}
	if _, exists := s.children[id]; exists {
		return nil, fmt.Errorf("duplicate process ID %s", id)
	}

	child := newChild(id, name, cmd)

	var opened []io.Closer
	abort := func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}

	if cmd.Stdin == nil {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			abort()
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
		child.Stdin = stdin
		opened = append(opened, stdin)
	}
	if cmd.Stdout == nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			abort()
			return nil, fmt.Errorf("stdout pipe: %w", err)
		}
		child.Stdout = stdout
		opened = append(opened, stdout)
	}
	if cmd.Stderr == nil {
		stderr, err := cmd.StderrPipe()
		if err != nil {
			abort()
			return nil, fmt.Errorf("stderr pipe: %w", err)
		}
		child.Stderr = stderr
		opened = append(opened, stderr)
	}

	if err := child.start(); err != nil {
		abort()
		return nil, err
	}

	s.children[id] = child
	go s.watch(child)

	return child, nil
}

// watch removes a child from tracking once it exits.
func (s *Supervisor) watch(child *Child) {
	<-child.Done()

	if s.onExit != nil {
		func() {
			defer func() { _ = recover() }()
			s.onExit(child)
		}()
	}

	s.mu.Lock()
	delete(s.children, child.ID)
	s.mu.Unlock()
}

// Get returns the child with the given ID, or nil.
func (s *Supervisor) Get(id string) *Child {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.children[id]
}

// List returns all live children.
func (s *Supervisor) List() []*Child {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Child, 0, len(s.children))
	for _, c := range s.children {
		out = append(out, c)
	}
	return out
}

// Count returns how many children are tracked.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Terminate sends SIGTERM to the child with the given ID. Returns nil if
// the child has already exited.
func (s *Supervisor) Terminate(id string) error {
	child := s.Get(id)
	if child == nil {
		return ErrUnknownProcess
	}
	if !child.IsRunning() {
		return nil
	}
	return child.Terminate()
}

// Kill sends SIGKILL to the child with the given ID.
func (s *Supervisor) Kill(id string) error {
	child := s.Get(id)
	if child == nil {
		return ErrUnknownProcess
	}
	if !child.IsRunning() {
		return nil
	}
	return child.Kill()
}

// Shutdown terminates every child: SIGTERM first, then SIGKILL for
// anything still alive after the timeout. It blocks until all children
// have exited and been removed from tracking. Shutdown is idempotent.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return
	}

	children := s.List()
	if len(children) == 0 {
		return
	}

	for _, c := range children {
		if c.IsRunning() {
			_ = c.Terminate()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, c := range children {
			<-c.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, c := range children {
			if c.IsRunning() {
				_ = c.Kill()
			}
		}
		<-done
	}

	// Let the watch goroutines finish removal so Count reports 0.
	for s.Count() > 0 {
		time.Sleep(time.Millisecond)
	}
}

// Closed reports whether Shutdown has begun.
func (s *Supervisor) Closed() bool {
	return s.closed.Load()
}
