package lsp

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/halcyon-editor/halcyon/internal/process"
)

// Manager owns one Client per language and routes files to them. Servers
// launch lazily on the first request for their language and share one
// process supervisor.
type Manager struct {
	supervisor *process.Supervisor
	rootPath   string
	timeouts   Timeouts
	debounce   time.Duration
	logger     *log.Logger

	mu      sync.RWMutex
	configs map[string]ServerConfig
	clients map[string]*Client

	events  chan ManagerDiagnostics
	fwdWG   sync.WaitGroup
	closed  bool
}

// ManagerDiagnostics is a diagnostics push tagged with its source language.
type ManagerDiagnostics struct {
	LanguageID string
	Event      DiagnosticsEvent
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerTimeouts sets the deadline table for every client.
func WithManagerTimeouts(t Timeouts) ManagerOption {
	return func(m *Manager) { m.timeouts = t }
}

// WithManagerDebounce sets the didChange window for every client.
func WithManagerDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) { m.debounce = d }
}

// WithManagerLogger replaces the default logger.
func WithManagerLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager rooted at the given workspace path.
func NewManager(rootPath string, sup *process.Supervisor, opts ...ManagerOption) *Manager {
	m := &Manager{
		supervisor: sup,
		rootPath:   rootPath,
		timeouts:   DefaultTimeouts(),
		debounce:   DefaultDebounceInterval,
		logger:     log.Default(),
		configs:    make(map[string]ServerConfig),
		clients:    make(map[string]*Client),
		events:     make(chan ManagerDiagnostics, defaultDiagnosticsBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register makes a server available for its language. Registering twice for
// one language replaces the config for future launches; a client already
// running keeps its original config.
func (m *Manager) Register(cfg ServerConfig) error {
	if cfg.Command == "" {
		return fmt.Errorf("server for %q: empty command", cfg.LanguageID)
	}
	if cfg.LanguageID == "" {
		return fmt.Errorf("server %q: empty language id", cfg.Command)
	}
	if cfg.RootPath == "" {
		cfg.RootPath = m.rootPath
	}

	m.mu.Lock()
	m.configs[cfg.LanguageID] = cfg
	m.mu.Unlock()
	return nil
}

// Languages lists every registered language.
func (m *Manager) Languages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.configs))
	for lang := range m.configs {
		out = append(out, lang)
	}
	return out
}

// ClientFor returns the running client for a file, launching its server on
// first use. ErrNoServer when no server is registered for the file's
// language.
func (m *Manager) ClientFor(ctx context.Context, path string) (*Client, error) {
	return m.ClientForLanguage(ctx, DetectLanguageID(path))
}

// ClientForLanguage returns the running client for a language, launching
// its server on first use.
func (m *Manager) ClientForLanguage(ctx context.Context, languageID string) (*Client, error) {
	m.mu.RLock()
	if client, ok := m.clients[languageID]; ok {
		m.mu.RUnlock()
		return client, nil
	}
	cfg, ok := m.configs[languageID]
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return nil, ErrDisposed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoServer, languageID)
	}

	client := NewClient(cfg, m.supervisor,
		WithTimeouts(m.timeouts),
		WithDebounceInterval(m.debounce),
		WithLogger(m.logger),
	)
	if err := client.Start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.clients[languageID]; ok {
		// Lost a launch race; keep the winner.
		m.mu.Unlock()
		_ = client.Stop(ctx)
		return existing, nil
	}
	m.clients[languageID] = client
	m.fwdWG.Add(1)
	m.mu.Unlock()

	go m.forwardDiagnostics(languageID, client)
	return client, nil
}

// Client returns the running client for a language without launching one.
func (m *Manager) Client(languageID string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[languageID]
	return client, ok
}

// Running lists the languages with a live client.
func (m *Manager) Running() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.clients))
	for lang := range m.clients {
		out = append(out, lang)
	}
	return out
}

// Diagnostics is the merged diagnostics stream across every running server.
// Closed by StopAll.
func (m *Manager) Diagnostics() <-chan ManagerDiagnostics {
	return m.events
}

// forwardDiagnostics copies one client's diagnostics into the merged
// stream. It exits when the client's channel closes on Stop, which is why
// StopAll can safely close the merged channel after waiting for forwarders.
func (m *Manager) forwardDiagnostics(languageID string, client *Client) {
	defer m.fwdWG.Done()
	for ev := range client.Diagnostics() {
		out := ManagerDiagnostics{LanguageID: languageID, Event: ev}
		for {
			select {
			case m.events <- out:
			default:
				// Consumer is behind; drop the oldest event and retry so
				// subscribers see the freshest state.
				select {
				case <-m.events:
				default:
				}
				continue
			}
			break
		}
	}
}

// Stop shuts down the client for one language.
func (m *Manager) Stop(ctx context.Context, languageID string) error {
	m.mu.Lock()
	client, ok := m.clients[languageID]
	if ok {
		delete(m.clients, languageID)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoServer, languageID)
	}
	if err := client.Stop(ctx); err != nil {
		return &ServerError{LanguageID: languageID, Err: err}
	}
	return nil
}

// StopAll shuts down every client and closes the merged diagnostics stream.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for lang, client := range clients {
		wg.Add(1)
		go func(lang string, client *Client) {
			defer wg.Done()
			if err := client.Stop(ctx); err != nil {
				m.logger.Printf("lsp: stop %s: %v", lang, err)
			}
		}(lang, client)
	}
	wg.Wait()

	m.fwdWG.Wait()
	close(m.events)
}
