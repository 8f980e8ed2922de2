package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte("[sync]\ndebounce_ms = 100\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := WatchFile(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("[sync]\ndebounce_ms = 900\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if got := cfg.Debounce(); got != 900*time.Millisecond {
			t.Errorf("reloaded debounce = %v, want 900ms", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload never fired")
	}
}

func TestWatcher_BadVersionKeepsRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := WatchFile(path, func(cfg *Config) {
		reloaded <- cfg
	}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	defer w.Close()

	// A broken save must not produce a reload.
	if err := os.WriteFile(path, []byte("[servers.go"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case <-reloaded:
		t.Fatal("reload fired for malformed config")
	case <-time.After(time.Second):
	}

	// Fixing the file resumes reloads.
	if err := os.WriteFile(path, []byte("[servers.go]\ncommand = \"gopls\"\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case cfg := <-reloaded:
		if cfg.Servers["go"].Command != "gopls" {
			t.Errorf("servers = %+v", cfg.Servers)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload never fired after fix")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := WatchFile(path, func(*Config) {}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("WatchFile: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
