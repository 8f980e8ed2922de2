package lsp

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// notifyRecorder captures outgoing notifications for inspection.
type notifyRecorder struct {
	mu    sync.Mutex
	calls []recordedNotify
}

type recordedNotify struct {
	method string
	params any
}

func (r *notifyRecorder) notify(method string, params any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedNotify{method: method, params: params})
	return nil
}

func (r *notifyRecorder) byMethod(method string) []recordedNotify {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedNotify
	for _, c := range r.calls {
		if c.method == method {
			out = append(out, c)
		}
	}
	return out
}

func TestDocumentSync_OpenAtVersionOne(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "package a\n"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	opens := rec.byMethod(MethodDidOpen)
	if len(opens) != 1 {
		t.Fatalf("didOpen count = %d, want 1", len(opens))
	}
	p := opens[0].params.(DidOpenTextDocumentParams)
	if p.TextDocument.Version != 1 {
		t.Errorf("open version = %d, want 1", p.TextDocument.Version)
	}
	if p.TextDocument.LanguageID != "go" {
		t.Errorf("languageId = %q, want go", p.TextDocument.LanguageID)
	}

	if err := s.Open("file:///a.go", "go", "x"); !errors.Is(err, ErrDocumentAlreadyOpen) {
		t.Errorf("second Open err = %v, want ErrDocumentAlreadyOpen", err)
	}
}

func TestDocumentSync_DebounceCoalesces(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, 30*time.Millisecond)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, text := range []string{"v1", "v2", "v3"} {
		if err := s.Change("file:///a.go", text); err != nil {
			t.Fatalf("Change(%q): %v", text, err)
		}
	}

	time.Sleep(100 * time.Millisecond)

	changes := rec.byMethod(MethodDidChange)
	if len(changes) != 1 {
		t.Fatalf("didChange count = %d, want 1", len(changes))
	}
	p := changes[0].params.(DidChangeTextDocumentParams)
	if p.TextDocument.Version != 2 {
		t.Errorf("version = %d, want 2", p.TextDocument.Version)
	}
	if len(p.ContentChanges) != 1 || p.ContentChanges[0].Text != "v3" {
		t.Errorf("content = %+v, want full text v3", p.ContentChanges)
	}
	if p.ContentChanges[0].Range != nil {
		t.Error("full sync change must have no range")
	}
}

func TestDocumentSync_VersionsIncreaseByOnePerFlush(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	const k = 4
	for i := 0; i < k; i++ {
		if err := s.Change("file:///a.go", "edit"); err != nil {
			t.Fatalf("Change: %v", err)
		}
		s.Flush()
	}

	changes := rec.byMethod(MethodDidChange)
	if len(changes) != k {
		t.Fatalf("didChange count = %d, want %d", len(changes), k)
	}
	for i, c := range changes {
		p := c.params.(DidChangeTextDocumentParams)
		if want := i + 2; p.TextDocument.Version != want {
			t.Errorf("change %d version = %d, want %d", i, p.TextDocument.Version, want)
		}
	}
}

func TestDocumentSync_SecondFileFlushesFirst(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "a0"); err != nil {
		t.Fatalf("Open a: %v", err)
	}
	if err := s.Open("file:///b.go", "go", "b0"); err != nil {
		t.Fatalf("Open b: %v", err)
	}

	if err := s.Change("file:///a.go", "a1"); err != nil {
		t.Fatalf("Change a: %v", err)
	}
	// Editing b while a's change is held must push a's change out now.
	if err := s.Change("file:///b.go", "b1"); err != nil {
		t.Fatalf("Change b: %v", err)
	}

	changes := rec.byMethod(MethodDidChange)
	if len(changes) != 1 {
		t.Fatalf("didChange count = %d, want 1 (a flushed, b held)", len(changes))
	}
	p := changes[0].params.(DidChangeTextDocumentParams)
	if p.TextDocument.URI != "file:///a.go" {
		t.Errorf("flushed uri = %q, want a.go", p.TextDocument.URI)
	}
	if p.ContentChanges[0].Text != "a1" {
		t.Errorf("flushed text = %q, want a1", p.ContentChanges[0].Text)
	}

	s.Flush()
	changes = rec.byMethod(MethodDidChange)
	if len(changes) != 2 {
		t.Fatalf("didChange count after flush = %d, want 2", len(changes))
	}
	p = changes[1].params.(DidChangeTextDocumentParams)
	if p.TextDocument.URI != "file:///b.go" || p.ContentChanges[0].Text != "b1" {
		t.Errorf("second change = %+v", p)
	}
}

func TestDocumentSync_CloseDropsHeldChange(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Change("file:///a.go", "v1"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if err := s.Close("file:///a.go"); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if n := len(rec.byMethod(MethodDidChange)); n != 0 {
		t.Errorf("didChange count = %d, want 0 (held edit dropped on close)", n)
	}
	if n := len(rec.byMethod(MethodDidClose)); n != 1 {
		t.Errorf("didClose count = %d, want 1", n)
	}

	// A flush after close must not emit anything for the closed document.
	s.Flush()
	if n := len(rec.byMethod(MethodDidChange)); n != 0 {
		t.Errorf("didChange after close+flush = %d, want 0", n)
	}

	if err := s.Close("file:///a.go"); !errors.Is(err, ErrDocumentNotOpen) {
		t.Errorf("second Close err = %v, want ErrDocumentNotOpen", err)
	}
}

func TestDocumentSync_SaveFlushesFirst(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Change("file:///a.go", "v1"); err != nil {
		t.Fatalf("Change: %v", err)
	}
	if err := s.Save("file:///a.go"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var sawChange bool
	rec.mu.Lock()
	for _, c := range rec.calls {
		if c.method == MethodDidChange {
			sawChange = true
		}
		if c.method == MethodDidSave && !sawChange {
			t.Error("didSave sent before held didChange")
		}
	}
	rec.mu.Unlock()
	if !sawChange {
		t.Error("held change never flushed")
	}
}

func TestDocumentSync_ChangeUnopened(t *testing.T) {
	s := newDocumentSync((&notifyRecorder{}).notify, time.Hour)
	if err := s.Change("file:///nope.go", "x"); !errors.Is(err, ErrDocumentNotOpen) {
		t.Errorf("err = %v, want ErrDocumentNotOpen", err)
	}
}

func TestDocumentSync_GetTracksState(t *testing.T) {
	rec := &notifyRecorder{}
	s := newDocumentSync(rec.notify, time.Hour)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Change("file:///a.go", "v1"); err != nil {
		t.Fatalf("Change: %v", err)
	}

	// Held change is not yet visible in tracked state.
	doc, ok := s.Get("file:///a.go")
	if !ok || doc.Version != 1 || doc.Text != "v0" {
		t.Errorf("before flush: %+v ok=%v", doc, ok)
	}

	s.Flush()
	doc, _ = s.Get("file:///a.go")
	if doc.Version != 2 || doc.Text != "v1" {
		t.Errorf("after flush: %+v", doc)
	}
}

func TestDocumentSync_SlowSendDoesNotHoldLock(t *testing.T) {
	release := make(chan struct{})
	sending := make(chan struct{})
	var once sync.Once
	notify := func(method string, params any) error {
		if method == MethodDidChange {
			once.Do(func() { close(sending) })
			<-release
		}
		return nil
	}
	s := newDocumentSync(notify, time.Hour)
	defer close(release)

	if err := s.Open("file:///a.go", "go", "v0"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Change("file:///a.go", "v1"); err != nil {
		t.Fatalf("Change: %v", err)
	}

	go s.Flush()
	<-sending

	// The didChange write is stalled; state reads must still go through.
	done := make(chan Document, 1)
	go func() {
		doc, _ := s.Get("file:///a.go")
		done <- doc
	}()
	select {
	case doc := <-done:
		if doc.Version != 2 || doc.Text != "v1" {
			t.Errorf("state during send: %+v", doc)
		}
	case <-time.After(time.Second):
		t.Fatal("Get blocked while a notification was in flight")
	}
}
