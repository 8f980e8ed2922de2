// Package lsp implements a Language Server Protocol client: JSON-RPC 2.0
// framing over a server's stdio, request correlation with per-method
// deadlines, debounced document synchronization, and typed feature requests.
//
// A Manager routes files to one Client per language and launches servers
// lazily through a shared process supervisor:
//
//	sup := process.NewSupervisor()
//	mgr := lsp.NewManager("/path/to/project", sup)
//	mgr.Register(lsp.ServerConfig{Command: "gopls", LanguageID: "go"})
//
//	client, err := mgr.ClientFor(ctx, "main.go")
//	if err != nil {
//		// no server registered, or launch failed
//	}
//	client.OpenDocument("main.go", text)
//	hover := client.Hover(ctx, "main.go", lsp.Position{Line: 10, Character: 4})
//
// Feature requests degrade rather than fail: a request that errors or times
// out returns a nil result and the editor keeps working. Diagnostics arrive
// on a buffered channel per client, merged across servers by the Manager;
// when the consumer lags, the oldest pushes are dropped in favor of the
// newest server state.
package lsp
