package lsp

import (
	"encoding/json"
	"testing"
)

func TestParseCompletionResult_BareArray(t *testing.T) {
	raw := json.RawMessage(`[
		{"label":"Println","kind":3},
		{"label":"Printf","kind":3},
		{"label":"Print","kind":3}
	]`)
	list := ParseCompletionResult(raw)
	if list == nil {
		t.Fatal("nil list for bare array")
	}
	if list.IsIncomplete {
		t.Error("bare array should produce IsIncomplete=false")
	}
	if len(list.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(list.Items))
	}
	if list.Items[0].Label != "Println" {
		t.Errorf("Items[0].Label = %q, want %q", list.Items[0].Label, "Println")
	}
	if list.Items[1].Kind != CompletionItemKindFunction {
		t.Errorf("Items[1].Kind = %d, want %d", list.Items[1].Kind, CompletionItemKindFunction)
	}
}

func TestParseCompletionResult_List(t *testing.T) {
	raw := json.RawMessage(`{"isIncomplete":true,"items":[{"label":"x"}]}`)
	list := ParseCompletionResult(raw)
	if list == nil {
		t.Fatal("nil list")
	}
	if !list.IsIncomplete {
		t.Error("IsIncomplete not preserved")
	}
	if len(list.Items) != 1 || list.Items[0].Label != "x" {
		t.Errorf("items = %+v", list.Items)
	}
}

func TestParseCompletionResult_Null(t *testing.T) {
	if got := ParseCompletionResult(json.RawMessage(`null`)); got != nil {
		t.Errorf("null should decode to nil, got %+v", got)
	}
	if got := ParseCompletionResult(nil); got != nil {
		t.Errorf("empty raw should decode to nil, got %+v", got)
	}
}

func TestParseLocationResult_SingleObject(t *testing.T) {
	raw := json.RawMessage(`{"uri":"file:///a.go","range":{"start":{"line":1,"character":2},"end":{"line":1,"character":8}}}`)
	locs := ParseLocationResult(raw)
	if len(locs) != 1 {
		t.Fatalf("len = %d, want 1", len(locs))
	}
	if locs[0].URI != "file:///a.go" {
		t.Errorf("URI = %q", locs[0].URI)
	}
	if locs[0].Range.Start.Line != 1 || locs[0].Range.End.Character != 8 {
		t.Errorf("range = %+v", locs[0].Range)
	}
}

func TestParseLocationResult_Array(t *testing.T) {
	raw := json.RawMessage(`[
		{"uri":"file:///a.go","range":{"start":{"line":0,"character":0},"end":{"line":0,"character":1}}},
		{"uri":"file:///b.go","range":{"start":{"line":5,"character":0},"end":{"line":5,"character":3}}}
	]`)
	locs := ParseLocationResult(raw)
	if len(locs) != 2 {
		t.Fatalf("len = %d, want 2", len(locs))
	}
	if locs[1].URI != "file:///b.go" {
		t.Errorf("URI = %q", locs[1].URI)
	}
}

func TestParseLocationResult_LocationLinks(t *testing.T) {
	raw := json.RawMessage(`[{
		"targetUri":"file:///c.go",
		"targetRange":{"start":{"line":10,"character":0},"end":{"line":20,"character":1}},
		"targetSelectionRange":{"start":{"line":10,"character":5},"end":{"line":10,"character":9}}
	}]`)
	locs := ParseLocationResult(raw)
	if len(locs) != 1 {
		t.Fatalf("len = %d, want 1", len(locs))
	}
	if locs[0].URI != "file:///c.go" {
		t.Errorf("URI = %q", locs[0].URI)
	}
	if locs[0].Range.Start.Character != 5 {
		t.Errorf("selection range not used: %+v", locs[0].Range)
	}
}

func TestParseLocationResult_Null(t *testing.T) {
	if got := ParseLocationResult(json.RawMessage(`null`)); got != nil {
		t.Errorf("null should decode to nil, got %+v", got)
	}
}

func TestParseHoverResult_Markup(t *testing.T) {
	raw := json.RawMessage(`{"contents":{"kind":"markdown","value":"func Foo()"},"range":{"start":{"line":2,"character":0},"end":{"line":2,"character":3}}}`)
	h := ParseHoverResult(raw)
	if h == nil {
		t.Fatal("nil hover")
	}
	if h.Contents.Kind != MarkupKindMarkdown || h.Contents.Value != "func Foo()" {
		t.Errorf("contents = %+v", h.Contents)
	}
	if h.Range == nil || h.Range.Start.Line != 2 {
		t.Errorf("range = %+v", h.Range)
	}
}

func TestParseHoverResult_BareString(t *testing.T) {
	h := ParseHoverResult(json.RawMessage(`{"contents":"plain info"}`))
	if h == nil {
		t.Fatal("nil hover")
	}
	if h.Contents.Kind != MarkupKindPlainText || h.Contents.Value != "plain info" {
		t.Errorf("contents = %+v", h.Contents)
	}
}

func TestParseHoverResult_MarkedStringArray(t *testing.T) {
	raw := json.RawMessage(`{"contents":[{"language":"go","value":"func Foo()"},"docs here"]}`)
	h := ParseHoverResult(raw)
	if h == nil {
		t.Fatal("nil hover")
	}
	want := "```go\nfunc Foo()\n```\n\ndocs here"
	if h.Contents.Value != want {
		t.Errorf("value = %q, want %q", h.Contents.Value, want)
	}
}

func TestParsePrepareRenameResult_Variants(t *testing.T) {
	bare := ParsePrepareRenameResult(json.RawMessage(`{"start":{"line":1,"character":0},"end":{"line":1,"character":4}}`))
	if bare == nil {
		t.Fatal("nil for bare range")
	}
	if bare.Placeholder != "" || bare.Range.End.Character != 4 {
		t.Errorf("bare = %+v", bare)
	}

	full := ParsePrepareRenameResult(json.RawMessage(`{"range":{"start":{"line":1,"character":0},"end":{"line":1,"character":4}},"placeholder":"oldName"}`))
	if full == nil {
		t.Fatal("nil for placeholder form")
	}
	if full.Placeholder != "oldName" {
		t.Errorf("placeholder = %q", full.Placeholder)
	}

	if got := ParsePrepareRenameResult(json.RawMessage(`null`)); got != nil {
		t.Errorf("null should decode to nil, got %+v", got)
	}
	if got := ParsePrepareRenameResult(json.RawMessage(`{"defaultBehavior":true}`)); got != nil {
		t.Errorf("defaultBehavior should decode to nil, got %+v", got)
	}
}

func TestParseDocumentSymbolResult_Hierarchical(t *testing.T) {
	raw := json.RawMessage(`[{
		"name":"Server","kind":23,
		"range":{"start":{"line":0,"character":0},"end":{"line":30,"character":1}},
		"selectionRange":{"start":{"line":0,"character":5},"end":{"line":0,"character":11}},
		"children":[{
			"name":"Start","kind":6,
			"range":{"start":{"line":5,"character":0},"end":{"line":10,"character":1}},
			"selectionRange":{"start":{"line":5,"character":5},"end":{"line":5,"character":10}}
		}]
	}]`)
	syms := ParseDocumentSymbolResult(raw)
	if len(syms) != 1 {
		t.Fatalf("len = %d, want 1", len(syms))
	}
	if syms[0].Kind != SymbolKindStruct {
		t.Errorf("kind = %d, want struct", syms[0].Kind)
	}
	if len(syms[0].Children) != 1 || syms[0].Children[0].Name != "Start" {
		t.Errorf("children = %+v", syms[0].Children)
	}
}

func TestParseDocumentSymbolResult_FlatInformation(t *testing.T) {
	raw := json.RawMessage(`[{
		"name":"Start","kind":6,"containerName":"Server",
		"location":{"uri":"file:///s.go","range":{"start":{"line":5,"character":0},"end":{"line":10,"character":1}}}
	}]`)
	syms := ParseDocumentSymbolResult(raw)
	if len(syms) != 1 {
		t.Fatalf("len = %d, want 1", len(syms))
	}
	if syms[0].Name != "Start" || syms[0].Detail != "Server" {
		t.Errorf("sym = %+v", syms[0])
	}
	if syms[0].Range.Start.Line != 5 || syms[0].SelectionRange != syms[0].Range {
		t.Errorf("ranges = %+v / %+v", syms[0].Range, syms[0].SelectionRange)
	}
}

func TestParseCodeActionResult_MixedCommandsAndActions(t *testing.T) {
	raw := json.RawMessage(`[
		{"title":"Organize imports","command":"editor.organizeImports","arguments":[]},
		{"title":"Fix typo","kind":"quickfix","isPreferred":true,
		 "edit":{"changes":{"file:///a.go":[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":3}},"newText":"fix"}]}}}
	]`)
	actions := ParseCodeActionResult(raw)
	if len(actions) != 2 {
		t.Fatalf("len = %d, want 2", len(actions))
	}
	if actions[0].Command == nil || actions[0].Command.Command != "editor.organizeImports" {
		t.Errorf("command action = %+v", actions[0])
	}
	if actions[1].Kind != CodeActionKindQuickFix || !actions[1].IsPreferred {
		t.Errorf("quickfix action = %+v", actions[1])
	}
	if actions[1].Edit == nil || len(actions[1].Edit.Changes["file:///a.go"]) != 1 {
		t.Errorf("edit = %+v", actions[1].Edit)
	}
}

func TestParseTextEditResult(t *testing.T) {
	raw := json.RawMessage(`[{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":0}},"newText":"package main\n"}]`)
	edits := ParseTextEditResult(raw)
	if len(edits) != 1 || edits[0].NewText != "package main\n" {
		t.Errorf("edits = %+v", edits)
	}
	if got := ParseTextEditResult(json.RawMessage(`null`)); got != nil {
		t.Errorf("null should decode to nil, got %+v", got)
	}
}

func TestParseWorkspaceEditResult(t *testing.T) {
	raw := json.RawMessage(`{"changes":{"file:///a.go":[{"range":{"start":{"line":1,"character":0},"end":{"line":1,"character":3}},"newText":"bar"}]}}`)
	edit := ParseWorkspaceEditResult(raw)
	if edit == nil {
		t.Fatal("nil edit")
	}
	if len(edit.Changes["file:///a.go"]) != 1 {
		t.Errorf("changes = %+v", edit.Changes)
	}
}

func TestParseSignatureHelpResult(t *testing.T) {
	raw := json.RawMessage(`{"signatures":[{"label":"func Foo(a int, b string)","parameters":[{"label":"a int"},{"label":"b string"}]}],"activeSignature":0,"activeParameter":1}`)
	help := ParseSignatureHelpResult(raw)
	if help == nil {
		t.Fatal("nil help")
	}
	if len(help.Signatures) != 1 || help.ActiveParameter != 1 {
		t.Errorf("help = %+v", help)
	}
	if got := ParseSignatureHelpResult(json.RawMessage(`{"signatures":[]}`)); got != nil {
		t.Errorf("empty signatures should decode to nil, got %+v", got)
	}
}
