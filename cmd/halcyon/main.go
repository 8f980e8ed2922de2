// Package main is the entry point for the halcyon language service driver.
//
// It launches the configured language servers for a workspace, opens the
// files named on the command line, and streams their diagnostics to stdout.
// A terminal front end talks to the same packages; this binary exercises
// them headlessly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/halcyon-editor/halcyon/internal/config"
	"github.com/halcyon-editor/halcyon/internal/lsp"
	"github.com/halcyon-editor/halcyon/internal/process"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	ConfigPath    string
	WorkspacePath string
	Watch         bool
	Files         []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	logger := log.New(os.Stderr, "halcyon: ", log.LstdFlags)

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.Resolve(opts.WorkspacePath)
	}
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if len(cfg.Servers) == 0 {
		fmt.Fprintf(os.Stderr, "Error: %v (add [servers.<language>] entries to %s)\n",
			config.ErrNoServers, config.DefaultFileName)
		return 1
	}

	sup := process.NewSupervisor()
	mgr := lsp.NewManager(opts.WorkspacePath, sup,
		lsp.WithManagerTimeouts(timeoutsFrom(cfg)),
		lsp.WithManagerDebounce(cfg.Debounce()),
		lsp.WithManagerLogger(logger),
	)
	for lang, srv := range cfg.Servers {
		err := mgr.Register(lsp.ServerConfig{
			Command:               srv.Command,
			Args:                  srv.Args,
			LanguageID:            lang,
			RootPath:              opts.WorkspacePath,
			InitializationOptions: srv.InitializationOptions,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	if opts.Watch && cfgPath != "" {
		w, err := config.WatchFile(cfgPath, func(next *config.Config) {
			// New timeouts and servers apply to clients launched from
			// here on; running servers keep their settings.
			for lang, srv := range next.Servers {
				_ = mgr.Register(lsp.ServerConfig{
					Command:               srv.Command,
					Args:                  srv.Args,
					LanguageID:            lang,
					RootPath:              opts.WorkspacePath,
					InitializationOptions: srv.InitializationOptions,
				})
			}
		}, logger)
		if err != nil {
			logger.Printf("config watch disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	for _, file := range opts.Files {
		if err := openFile(ctx, mgr, file); err != nil {
			logger.Printf("open %s: %v", file, err)
		}
	}

	streamDiagnostics(ctx, mgr)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	mgr.StopAll(shutdownCtx)
	sup.Shutdown(3 * time.Second)
	return 0
}

func openFile(ctx context.Context, mgr *lsp.Manager, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	text, err := os.ReadFile(abs)
	if err != nil {
		return err
	}
	client, err := mgr.ClientFor(ctx, abs)
	if err != nil {
		return err
	}
	return client.OpenDocument(abs, string(text))
}

// streamDiagnostics prints every diagnostics push until the context ends.
func streamDiagnostics(ctx context.Context, mgr *lsp.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-mgr.Diagnostics():
			if !ok {
				return
			}
			path, err := lsp.URIToFilePath(d.Event.URI)
			if err != nil {
				path = string(d.Event.URI)
			}
			if len(d.Event.Diagnostics) == 0 {
				fmt.Printf("%s: clean\n", path)
				continue
			}
			for _, diag := range d.Event.Diagnostics {
				fmt.Printf("%s:%d:%d: [%s] %s\n",
					path,
					diag.Range.Start.Line+1,
					diag.Range.Start.Character+1,
					severityLabel(diag.Severity),
					diag.Message,
				)
			}
		}
	}
}

func severityLabel(s lsp.DiagnosticSeverity) string {
	switch s {
	case lsp.DiagnosticSeverityError:
		return "error"
	case lsp.DiagnosticSeverityWarning:
		return "warning"
	case lsp.DiagnosticSeverityInformation:
		return "info"
	case lsp.DiagnosticSeverityHint:
		return "hint"
	default:
		return "diagnostic"
	}
}

func timeoutsFrom(cfg *config.Config) lsp.Timeouts {
	t := lsp.DefaultTimeouts()
	if d := cfg.Timeouts.Initialize(); d > 0 {
		t.Initialize = d
	}
	if d := cfg.Timeouts.Completion(); d > 0 {
		t.Completion = d
	}
	if d := cfg.Timeouts.References(); d > 0 {
		t.References = d
	}
	if d := cfg.Timeouts.Formatting(); d > 0 {
		t.Formatting = d
	}
	if d := cfg.Timeouts.Rename(); d > 0 {
		t.Rename = d
	}
	if d := cfg.Timeouts.CodeAction(); d > 0 {
		t.CodeAction = d
	}
	if d := cfg.Timeouts.DocumentSymbol(); d > 0 {
		t.DocumentSymbol = d
	}
	if d := cfg.Timeouts.Shutdown(); d > 0 {
		t.Shutdown = d
	}
	if d := cfg.Timeouts.Default(); d > 0 {
		t.Default = d
	}
	return t
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.WorkspacePath, "workspace", "", "Workspace/project directory")
	flag.StringVar(&opts.WorkspacePath, "w", "", "Workspace/project directory (shorthand)")
	flag.BoolVar(&opts.Watch, "watch-config", true, "Reload the config file when it changes")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Halcyon language service driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: halcyon [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  halcyon -w ./project main.go     Open main.go and stream diagnostics\n")
		fmt.Fprintf(os.Stderr, "  halcyon -c custom.toml file.rs   Use a specific config file\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("halcyon %s (%s)\n", version, commit)
		os.Exit(0)
	}

	opts.Files = flag.Args()

	if opts.WorkspacePath == "" && len(opts.Files) > 0 {
		if abs, err := filepath.Abs(opts.Files[0]); err == nil {
			opts.WorkspacePath = filepath.Dir(abs)
		}
	}
	if opts.WorkspacePath == "" {
		if wd, err := os.Getwd(); err == nil {
			opts.WorkspacePath = wd
		}
	}
	return opts
}
