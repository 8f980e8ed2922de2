package lsp

import "time"

// Timeouts holds per-method request deadlines. Zero values fall back to
// DefaultTimeouts at lookup time so a partially filled struct stays usable.
type Timeouts struct {
	Initialize     time.Duration
	Completion     time.Duration
	References     time.Duration
	Formatting     time.Duration
	Rename         time.Duration
	CodeAction     time.Duration
	DocumentSymbol time.Duration
	Shutdown       time.Duration
	Default        time.Duration
}

// DefaultTimeouts returns the stock deadline table. Initialize and
// completion run long because servers index on first contact; shutdown is
// short because the process gets killed right after anyway.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Initialize:     15 * time.Second,
		Completion:     20 * time.Second,
		References:     15 * time.Second,
		Formatting:     10 * time.Second,
		Rename:         10 * time.Second,
		CodeAction:     10 * time.Second,
		DocumentSymbol: 10 * time.Second,
		Shutdown:       2 * time.Second,
		Default:        5 * time.Second,
	}
}

// For returns the deadline for an LSP method.
func (t Timeouts) For(method string) time.Duration {
	d := t.Default
	switch method {
	case MethodInitialize:
		d = t.Initialize
	case MethodCompletion:
		d = t.Completion
	case MethodReferences:
		d = t.References
	case MethodFormatting:
		d = t.Formatting
	case MethodRename:
		d = t.Rename
	case MethodCodeAction:
		d = t.CodeAction
	case MethodDocumentSymbol:
		d = t.DocumentSymbol
	case MethodShutdown:
		d = t.Shutdown
	}
	if d <= 0 {
		d = DefaultTimeouts().For(method)
	}
	return d
}

// LSP method names used by this client.
const (
	MethodInitialize     = "initialize"
	MethodInitialized    = "initialized"
	MethodShutdown       = "shutdown"
	MethodExit           = "exit"
	MethodDidOpen        = "textDocument/didOpen"
	MethodDidChange      = "textDocument/didChange"
	MethodDidClose       = "textDocument/didClose"
	MethodDidSave        = "textDocument/didSave"
	MethodCompletion     = "textDocument/completion"
	MethodHover          = "textDocument/hover"
	MethodDefinition     = "textDocument/definition"
	MethodImplementation = "textDocument/implementation"
	MethodReferences     = "textDocument/references"
	MethodSignatureHelp  = "textDocument/signatureHelp"
	MethodDocumentSymbol = "textDocument/documentSymbol"
	MethodCodeAction     = "textDocument/codeAction"
	MethodFormatting     = "textDocument/formatting"
	MethodRename         = "textDocument/rename"
	MethodPrepareRename  = "textDocument/prepareRename"

	MethodPublishDiagnostics = "textDocument/publishDiagnostics"
	MethodShowMessage        = "window/showMessage"
	MethodLogMessage         = "window/logMessage"
	MethodProgress           = "$/progress"
)
