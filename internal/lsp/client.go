package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/halcyon-editor/halcyon/internal/process"
)

// ServerConfig describes how to launch and address one language server.
type ServerConfig struct {
	// Command is the server binary, resolved via PATH if not absolute.
	Command string
	// Args are passed to the server process.
	Args []string
	// LanguageID is the LSP language this server handles, e.g. "go".
	LanguageID string
	// RootPath is the workspace root sent during initialize.
	RootPath string
	// InitializationOptions are forwarded verbatim during initialize.
	InitializationOptions any
}

// Client manages one language server: its process, the framed connection to
// it, document synchronization, and diagnostics. All methods are safe for
// concurrent use.
//
// Feature requests never surface transport or server failures to the caller;
// a request that fails or times out yields a nil result, and the failure is
// logged. Editing must keep working when a server misbehaves.
type Client struct {
	config     ServerConfig
	supervisor *process.Supervisor
	timeouts   Timeouts
	logger     *log.Logger

	mu        sync.RWMutex
	child     *process.Child
	transport *Transport
	caps      ServerCapabilities
	info      *ServerInfo

	docs  *documentSync
	diags *diagnosticsHub

	started  atomic.Bool
	disposed atomic.Bool

	debounce    time.Duration
	diagsBuffer int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeouts replaces the default per-method deadline table.
func WithTimeouts(t Timeouts) ClientOption {
	return func(c *Client) { c.timeouts = t }
}

// WithDebounceInterval sets the didChange coalescing window.
func WithDebounceInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.debounce = d }
}

// WithDiagnosticsBuffer sets the diagnostics channel capacity.
func WithDiagnosticsBuffer(n int) ClientOption {
	return func(c *Client) { c.diagsBuffer = n }
}

// WithLogger replaces the default logger.
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for one server. The server is not launched
// until Start.
func NewClient(cfg ServerConfig, sup *process.Supervisor, opts ...ClientOption) *Client {
	c := &Client{
		config:      cfg,
		supervisor:  sup,
		timeouts:    DefaultTimeouts(),
		logger:      log.Default(),
		debounce:    DefaultDebounceInterval,
		diagsBuffer: defaultDiagnosticsBuffer,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.docs = newDocumentSync(c.notify, c.debounce)
	c.diags = newDiagnosticsHub(c.diagsBuffer)
	return c
}

// LanguageID returns the language this client serves.
func (c *Client) LanguageID() string {
	return c.config.LanguageID
}

// Start launches the server process and performs the initialize handshake.
// No other request or notification is sent before the handshake completes.
func (c *Client) Start(ctx context.Context) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(c.config.Command, c.config.Args...)
	cmd.Dir = c.config.RootPath
	child, err := c.supervisor.Start(c.config.Command, cmd)
	if err != nil {
		c.started.Store(false)
		return fmt.Errorf("%w: %s: %v", ErrStartFailed, c.config.Command, err)
	}

	go c.drainStderr(child)

	t := NewTransport(child.Stdin, child.Stdout,
		WithNotificationHandler(c.handleNotification),
		WithTransportLogger(c.logger),
	)

	c.mu.Lock()
	c.child = child
	c.transport = t
	c.mu.Unlock()

	// A failed or timed-out handshake degrades instead of failing Start:
	// the server stays up and later requests simply resolve empty.
	if err := c.initialize(ctx, t); err != nil {
		c.logger.Printf("lsp: %s initialize: %v", c.config.LanguageID, err)
	} else {
		c.logger.Printf("lsp: %s ready (%s)", c.config.LanguageID, c.serverName())
	}
	return nil
}

func (c *Client) initialize(ctx context.Context, t *Transport) error {
	params := InitializeParams{
		ProcessID:             os.Getpid(),
		RootURI:               FilePathToURI(c.config.RootPath),
		RootPath:              c.config.RootPath,
		Capabilities:          DefaultClientCapabilities(),
		InitializationOptions: c.config.InitializationOptions,
	}

	raw, callErr := t.Call(ctx, MethodInitialize, params, c.timeouts.For(MethodInitialize))
	if callErr == nil {
		var result InitializeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			callErr = fmt.Errorf("decode initialize result: %w", err)
		} else {
			c.mu.Lock()
			c.caps = result.Capabilities
			c.info = result.ServerInfo
			c.mu.Unlock()
		}
	}

	// Sent even when initialize did not answer; a slow server that catches
	// up still gets a well-formed handshake.
	if err := t.Notify(MethodInitialized, InitializedParams{}); err != nil && callErr == nil {
		callErr = err
	}
	return callErr
}

// Capabilities returns what the server reported during initialize.
func (c *Client) Capabilities() ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caps
}

func (c *Client) serverName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return c.config.Command
	}
	if c.info.Version != "" {
		return c.info.Name + " " + c.info.Version
	}
	return c.info.Name
}

// Running reports whether the server process is alive and the handshake done.
func (c *Client) Running() bool {
	if !c.started.Load() || c.disposed.Load() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.child != nil && c.child.IsRunning()
}

// Stop shuts the server down: held edits are discarded, a shutdown request
// is sent with its short deadline, then exit, then the process is terminated.
// Safe to call more than once.
func (c *Client) Stop(ctx context.Context) error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}

	c.docs.Stop()
	c.diags.Close()

	c.mu.Lock()
	t := c.transport
	child := c.child
	c.mu.Unlock()

	if t != nil && !t.Closed() {
		if _, err := t.Call(ctx, MethodShutdown, nil, c.timeouts.For(MethodShutdown)); err != nil {
			c.logger.Printf("lsp: %s shutdown: %v", c.config.LanguageID, err)
		}
		_ = t.Notify(MethodExit, nil)
		t.Close()
	}

	if child != nil {
		c.stopProcess(child)
	}
	return nil
}

// stopProcess escalates from SIGTERM to SIGKILL.
func (c *Client) stopProcess(child *process.Child) {
	if !child.IsRunning() {
		return
	}
	if err := child.Terminate(); err != nil {
		_ = child.Kill()
		return
	}
	select {
	case <-child.Done():
	case <-time.After(2 * time.Second):
		_ = child.Kill()
	}
}

// request sends one request and returns the raw result, or nil when the
// request could not be sent, errored, or timed out.
func (c *Client) request(ctx context.Context, method string, params any) json.RawMessage {
	c.mu.RLock()
	t := c.transport
	c.mu.RUnlock()

	if t == nil || c.disposed.Load() {
		return nil
	}

	raw, err := t.Call(ctx, method, params, c.timeouts.For(method))
	if err != nil {
		c.logger.Printf("lsp: %s %s: %v", c.config.LanguageID, method, err)
		return nil
	}
	return raw
}

// notify sends one notification to the server.
func (c *Client) notify(method string, params any) error {
	c.mu.RLock()
	t := c.transport
	c.mu.RUnlock()

	if t == nil {
		return ErrNotStarted
	}
	return t.Notify(method, params)
}

// handleNotification routes server-initiated notifications.
func (c *Client) handleNotification(method string, params json.RawMessage) {
	switch method {
	case MethodPublishDiagnostics:
		var p PublishDiagnosticsParams
		if err := json.Unmarshal(params, &p); err != nil {
			c.logger.Printf("lsp: %s bad diagnostics: %v", c.config.LanguageID, err)
			return
		}
		c.diags.Publish(p)
	case MethodLogMessage, MethodShowMessage:
		var p struct {
			Type    int    `json:"type"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(params, &p); err == nil {
			c.logger.Printf("lsp: %s server: %s", c.config.LanguageID, p.Message)
		}
	case MethodProgress:
		// Ignored. Progress reporting has no consumer here.
	default:
		c.logger.Printf("lsp: %s unhandled notification %s", c.config.LanguageID, method)
	}
}

// drainStderr keeps the server's stderr from filling its pipe and logs each
// line for postmortems.
func (c *Client) drainStderr(child *process.Child) {
	if child.Stderr == nil {
		return
	}
	sc := bufio.NewScanner(child.Stderr)
	sc.Buffer(make([]byte, 0, 4096), 256*1024)
	for sc.Scan() {
		c.logger.Printf("lsp: %s stderr: %s", c.config.LanguageID, sc.Text())
	}
}

// --- Document lifecycle ---

// OpenDocument registers a document with the server at version 1.
func (c *Client) OpenDocument(path, text string) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	uri := FilePathToURI(path)
	return c.docs.Open(uri, DetectLanguageID(path), text)
}

// ChangeDocument records a new full text for an open document. The matching
// didChange is debounced; rapid successive edits collapse into one.
func (c *Client) ChangeDocument(path, text string) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	return c.docs.Change(FilePathToURI(path), text)
}

// SaveDocument notifies the server that the document was written to disk.
func (c *Client) SaveDocument(path string) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	return c.docs.Save(FilePathToURI(path))
}

// CloseDocument unregisters a document and drops its retained diagnostics.
func (c *Client) CloseDocument(path string) error {
	if c.disposed.Load() {
		return ErrDisposed
	}
	uri := FilePathToURI(path)
	if err := c.docs.Close(uri); err != nil {
		return err
	}
	c.diags.Clear(uri)
	return nil
}

// Document returns the tracked state of an open document.
func (c *Client) Document(path string) (Document, bool) {
	return c.docs.Get(FilePathToURI(path))
}

// OpenDocuments lists every document currently open with this server.
func (c *Client) OpenDocuments() []Document {
	return c.docs.List()
}

// --- Diagnostics ---

// Diagnostics is the stream of diagnostics pushes from the server. The
// channel is buffered; when the consumer lags, the oldest events are
// dropped. Closed by Stop.
func (c *Client) Diagnostics() <-chan DiagnosticsEvent {
	return c.diags.Events()
}

// DiagnosticsFor returns the latest diagnostics published for a file.
func (c *Client) DiagnosticsFor(path string) []Diagnostic {
	return c.diags.Get(FilePathToURI(path))
}

// AllDiagnostics returns the latest diagnostics for every document.
func (c *Client) AllDiagnostics() map[DocumentURI][]Diagnostic {
	return c.diags.All()
}
