package lsp

import (
	"sync"
	"time"
)

// DefaultDebounceInterval is the delay between a buffer edit and the
// didChange notification carrying it.
const DefaultDebounceInterval = 500 * time.Millisecond

// Document is the client-side record of an open text document.
type Document struct {
	URI        DocumentURI
	LanguageID string
	Version    int
	Text       string
}

// notifyFunc sends one notification to the server.
type notifyFunc func(method string, params any) error

// documentSync tracks open documents and coalesces rapid edits into a single
// didChange per quiet period. It holds one pending edit at a time; an edit
// to a different document flushes the held one immediately, so ordering
// across documents is preserved.
type documentSync struct {
	mu       sync.Mutex
	docs     map[DocumentURI]*Document
	notify   notifyFunc
	debounce time.Duration

	// Single pending-change slot.
	pendingURI  DocumentURI
	pendingText string
	hasPending  bool
	timer       *time.Timer
}

func newDocumentSync(notify notifyFunc, debounce time.Duration) *documentSync {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}
	return &documentSync{
		docs:     make(map[DocumentURI]*Document),
		notify:   notify,
		debounce: debounce,
	}
}

// Open registers a document and sends textDocument/didOpen with version 1.
func (s *documentSync) Open(uri DocumentURI, languageID, text string) error {
	s.mu.Lock()
	if _, ok := s.docs[uri]; ok {
		s.mu.Unlock()
		return ErrDocumentAlreadyOpen
	}
	doc := &Document{URI: uri, LanguageID: languageID, Version: 1, Text: text}
	s.docs[uri] = doc
	s.mu.Unlock()

	return s.notify(MethodDidOpen, DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    1,
			Text:       text,
		},
	})
}

// Change records new full text for an open document. The didChange
// notification is deferred by the debounce interval; successive calls for
// the same document within the window replace the held text so only the
// last state reaches the server. A change to a different document flushes
// the held one first.
func (s *documentSync) Change(uri DocumentURI, text string) error {
	s.mu.Lock()
	if _, ok := s.docs[uri]; !ok {
		s.mu.Unlock()
		return ErrDocumentNotOpen
	}

	var held *DidChangeTextDocumentParams
	if s.hasPending && s.pendingURI != uri {
		held = s.flushLocked()
	}

	s.pendingURI = uri
	s.pendingText = text
	s.hasPending = true

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		p := s.flushLocked()
		s.mu.Unlock()
		s.send(p)
	})
	s.mu.Unlock()

	s.send(held)
	return nil
}

// Flush sends any held change immediately. Callers use this right before a
// request so the server sees the buffer the user sees.
func (s *documentSync) Flush() {
	s.mu.Lock()
	p := s.flushLocked()
	s.mu.Unlock()
	s.send(p)
}

// flushLocked consumes the held change, bumping the document version, and
// returns the didChange params for the caller to send after releasing s.mu.
// Keeping the transport write outside the lock means a slow or blocked
// server cannot stall other document operations.
func (s *documentSync) flushLocked() *DidChangeTextDocumentParams {
	if !s.hasPending {
		return nil
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	uri, text := s.pendingURI, s.pendingText
	s.hasPending = false
	s.pendingURI = ""
	s.pendingText = ""

	doc, ok := s.docs[uri]
	if !ok {
		// Document was closed while the change was held.
		return nil
	}
	doc.Version++
	doc.Text = text

	// Full-document sync: one change event, no range.
	return &DidChangeTextDocumentParams{
		TextDocument: VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: TextDocumentIdentifier{URI: uri},
			Version:                doc.Version,
		},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: text}},
	}
}

// send delivers flushed didChange params, tolerating a nil no-op flush.
func (s *documentSync) send(p *DidChangeTextDocumentParams) {
	if p == nil {
		return
	}
	_ = s.notify(MethodDidChange, *p)
}

// Save sends textDocument/didSave, flushing any held change first so the
// save refers to the current buffer.
func (s *documentSync) Save(uri DocumentURI) error {
	s.mu.Lock()
	if _, ok := s.docs[uri]; !ok {
		s.mu.Unlock()
		return ErrDocumentNotOpen
	}
	p := s.flushLocked()
	s.mu.Unlock()
	s.send(p)

	return s.notify(MethodDidSave, DidSaveTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// Close unregisters a document and sends textDocument/didClose. A change
// still held for the document is dropped; the server is closing the file
// anyway.
func (s *documentSync) Close(uri DocumentURI) error {
	s.mu.Lock()
	if _, ok := s.docs[uri]; !ok {
		s.mu.Unlock()
		return ErrDocumentNotOpen
	}
	if s.hasPending && s.pendingURI == uri {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.hasPending = false
		s.pendingURI = ""
		s.pendingText = ""
	}
	delete(s.docs, uri)
	s.mu.Unlock()

	return s.notify(MethodDidClose, DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
}

// Get returns a copy of the document state, and whether it is open.
func (s *documentSync) Get(uri DocumentURI) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// Open documents in no particular order.
func (s *documentSync) List() []Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, *doc)
	}
	return out
}

// Stop cancels any armed debounce timer without flushing. Used on client
// shutdown where the server is going away anyway.
func (s *documentSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.hasPending = false
}
