package lsp

import (
	"sync"
)

// defaultDiagnosticsBuffer is the capacity of a client's diagnostics channel.
const defaultDiagnosticsBuffer = 64

// DiagnosticsEvent is one publishDiagnostics push from a server. An empty
// Diagnostics slice clears previous diagnostics for the document.
type DiagnosticsEvent struct {
	URI         DocumentURI
	Version     int
	Diagnostics []Diagnostic
}

// diagnosticsHub retains the latest diagnostics per document and forwards
// each push to a buffered channel. When the consumer falls behind, the
// oldest buffered event is dropped so the channel always holds the most
// recent state.
type diagnosticsHub struct {
	mu     sync.RWMutex
	byURI  map[DocumentURI][]Diagnostic
	events chan DiagnosticsEvent
	closed bool
}

func newDiagnosticsHub(buffer int) *diagnosticsHub {
	if buffer <= 0 {
		buffer = defaultDiagnosticsBuffer
	}
	return &diagnosticsHub{
		byURI:  make(map[DocumentURI][]Diagnostic),
		events: make(chan DiagnosticsEvent, buffer),
	}
}

// Publish records the diagnostics for a document and queues the event.
func (h *diagnosticsHub) Publish(params PublishDiagnosticsParams) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if len(params.Diagnostics) == 0 {
		delete(h.byURI, params.URI)
	} else {
		h.byURI[params.URI] = params.Diagnostics
	}

	ev := DiagnosticsEvent{
		URI:         params.URI,
		Version:     params.Version,
		Diagnostics: params.Diagnostics,
	}
	for {
		select {
		case h.events <- ev:
			h.mu.Unlock()
			return
		default:
		}
		// Full: drop the oldest event and retry.
		select {
		case <-h.events:
		default:
		}
	}
}

// Events is the stream of diagnostics pushes. Closed on client shutdown.
func (h *diagnosticsHub) Events() <-chan DiagnosticsEvent {
	return h.events
}

// Get returns the latest diagnostics for a document.
func (h *diagnosticsHub) Get(uri DocumentURI) []Diagnostic {
	h.mu.RLock()
	defer h.mu.RUnlock()
	diags := h.byURI[uri]
	out := make([]Diagnostic, len(diags))
	copy(out, diags)
	return out
}

// All returns the latest diagnostics for every document that has any.
func (h *diagnosticsHub) All() map[DocumentURI][]Diagnostic {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[DocumentURI][]Diagnostic, len(h.byURI))
	for uri, diags := range h.byURI {
		cp := make([]Diagnostic, len(diags))
		copy(cp, diags)
		out[uri] = cp
	}
	return out
}

// Clear drops retained diagnostics for a document, typically on didClose.
func (h *diagnosticsHub) Clear(uri DocumentURI) {
	h.mu.Lock()
	delete(h.byURI, uri)
	h.mu.Unlock()
}

// Close shuts the event channel. Publish becomes a no-op.
func (h *diagnosticsHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.events)
}
