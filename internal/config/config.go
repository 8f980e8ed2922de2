package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFileName is the config file looked up under the workspace root and
// the user config directory.
const DefaultFileName = "halcyon.toml"

// Config is the editor configuration loaded from TOML.
type Config struct {
	Servers     map[string]Server `toml:"servers"`
	Timeouts    Timeouts          `toml:"timeouts"`
	Sync        Sync              `toml:"sync"`
	Diagnostics Diagnostics       `toml:"diagnostics"`
}

// Server configures one language server.
type Server struct {
	// Command is the server executable.
	Command string `toml:"command"`
	// Args are passed to the executable.
	Args []string `toml:"args"`
	// InitializationOptions are forwarded to the server during initialize.
	InitializationOptions map[string]any `toml:"initialization_options"`
}

// Timeouts are per-method request deadlines in milliseconds. Zero means the
// built-in default for that method.
type Timeouts struct {
	InitializeMS     int64 `toml:"initialize_ms"`
	CompletionMS     int64 `toml:"completion_ms"`
	ReferencesMS     int64 `toml:"references_ms"`
	FormattingMS     int64 `toml:"formatting_ms"`
	RenameMS         int64 `toml:"rename_ms"`
	CodeActionMS     int64 `toml:"code_action_ms"`
	DocumentSymbolMS int64 `toml:"document_symbol_ms"`
	ShutdownMS       int64 `toml:"shutdown_ms"`
	DefaultMS        int64 `toml:"default_ms"`
}

// Sync configures document synchronization.
type Sync struct {
	// DebounceMS is the quiet period before an edit is sent to the server.
	DebounceMS int64 `toml:"debounce_ms"`
}

// Diagnostics configures diagnostics delivery.
type Diagnostics struct {
	// Buffer is the capacity of the diagnostics event channel.
	Buffer int `toml:"buffer"`
}

// ErrNoServers reports a config with no language server entries.
var ErrNoServers = errors.New("no language servers configured")

// Default returns the built-in configuration: a 500ms sync debounce, stock
// timeouts, and no servers.
func Default() *Config {
	return &Config{
		Servers: make(map[string]Server),
		Sync:    Sync{DebounceMS: 500},
	}
}

// Load reads a config file. A missing file is not an error; the defaults
// come back instead, so a fresh checkout works without any setup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]Server)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve finds the config file for a workspace: <root>/halcyon.toml first,
// then the user config directory. Empty when neither exists.
func Resolve(root string) string {
	local := filepath.Join(root, DefaultFileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if dir, err := os.UserConfigDir(); err == nil {
		user := filepath.Join(dir, "halcyon", DefaultFileName)
		if _, err := os.Stat(user); err == nil {
			return user
		}
	}
	return ""
}

// Validate rejects unusable entries. Unknown languages are fine; a server
// with no command is not.
func (c *Config) Validate() error {
	for lang, srv := range c.Servers {
		if srv.Command == "" {
			return fmt.Errorf("server %q: empty command", lang)
		}
	}
	for _, ms := range []int64{
		c.Timeouts.InitializeMS, c.Timeouts.CompletionMS, c.Timeouts.ReferencesMS,
		c.Timeouts.FormattingMS, c.Timeouts.RenameMS, c.Timeouts.CodeActionMS,
		c.Timeouts.DocumentSymbolMS, c.Timeouts.ShutdownMS, c.Timeouts.DefaultMS,
	} {
		if ms < 0 {
			return errors.New("timeouts must not be negative")
		}
	}
	if c.Sync.DebounceMS < 0 {
		return errors.New("sync.debounce_ms must not be negative")
	}
	if c.Diagnostics.Buffer < 0 {
		return errors.New("diagnostics.buffer must not be negative")
	}
	return nil
}

// Debounce returns the sync debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Sync.DebounceMS) * time.Millisecond
}

// Duration helpers for the timeout table. Zero stays zero so the consumer
// can substitute its per-method default.

func ms(v int64) time.Duration { return time.Duration(v) * time.Millisecond }

func (t Timeouts) Initialize() time.Duration     { return ms(t.InitializeMS) }
func (t Timeouts) Completion() time.Duration     { return ms(t.CompletionMS) }
func (t Timeouts) References() time.Duration     { return ms(t.ReferencesMS) }
func (t Timeouts) Formatting() time.Duration     { return ms(t.FormattingMS) }
func (t Timeouts) Rename() time.Duration         { return ms(t.RenameMS) }
func (t Timeouts) CodeAction() time.Duration     { return ms(t.CodeActionMS) }
func (t Timeouts) DocumentSymbol() time.Duration { return ms(t.DocumentSymbolMS) }
func (t Timeouts) Shutdown() time.Duration       { return ms(t.ShutdownMS) }
func (t Timeouts) Default() time.Duration        { return ms(t.DefaultMS) }
