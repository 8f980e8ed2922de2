package lsp

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Servers disagree on result shapes for several methods. The parsers here
// probe the raw JSON with gjson and normalize every variant to one Go type.
// All of them treat null, absent, and undecodable input as "no result".

// ParseCompletionResult decodes a completion response. Accepts null, a bare
// CompletionItem array, or a CompletionList.
func ParseCompletionResult(raw json.RawMessage) *CompletionList {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	switch {
	case v.Type == gjson.Null:
		return nil
	case v.IsArray():
		var items []CompletionItem
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		return &CompletionList{IsIncomplete: false, Items: items}
	case v.IsObject():
		var list CompletionList
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return &list
	default:
		return nil
	}
}

// ParseLocationResult decodes a definition, implementation, or references
// response. Accepts null, a single Location, a Location array, or a
// LocationLink array (narrowed to its target fields).
func ParseLocationResult(raw json.RawMessage) []Location {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	switch {
	case v.Type == gjson.Null:
		return nil
	case v.IsObject():
		var loc Location
		if err := json.Unmarshal(raw, &loc); err != nil {
			return nil
		}
		return []Location{loc}
	case v.IsArray():
		arr := v.Array()
		if len(arr) == 0 {
			return []Location{}
		}
		if arr[0].Get("targetUri").Exists() {
			locs := make([]Location, 0, len(arr))
			for _, link := range arr {
				var rng Range
				if err := json.Unmarshal([]byte(link.Get("targetSelectionRange").Raw), &rng); err != nil {
					continue
				}
				locs = append(locs, Location{
					URI:   DocumentURI(link.Get("targetUri").String()),
					Range: rng,
				})
			}
			return locs
		}
		var locs []Location
		if err := json.Unmarshal(raw, &locs); err != nil {
			return nil
		}
		return locs
	default:
		return nil
	}
}

// ParseHoverResult decodes a hover response, normalizing the contents field.
// Accepts MarkupContent, a bare string, a MarkedString object, or an array
// of either; array entries are joined with blank lines.
func ParseHoverResult(raw json.RawMessage) *Hover {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	if v.Type == gjson.Null || !v.IsObject() {
		return nil
	}

	contents := v.Get("contents")
	if !contents.Exists() {
		return nil
	}

	h := &Hover{Contents: normalizeMarkup(contents)}
	if rng := v.Get("range"); rng.Exists() {
		var r Range
		if err := json.Unmarshal([]byte(rng.Raw), &r); err == nil {
			h.Range = &r
		}
	}
	return h
}

func normalizeMarkup(v gjson.Result) MarkupContent {
	switch {
	case v.Type == gjson.String:
		return MarkupContent{Kind: MarkupKindPlainText, Value: v.String()}
	case v.IsArray():
		var parts []string
		for _, e := range v.Array() {
			if s := markupText(e); s != "" {
				parts = append(parts, s)
			}
		}
		return MarkupContent{Kind: MarkupKindMarkdown, Value: joinBlocks(parts)}
	case v.IsObject():
		if kind := v.Get("kind"); kind.Exists() {
			return MarkupContent{
				Kind:  MarkupKind(kind.String()),
				Value: v.Get("value").String(),
			}
		}
		// Deprecated MarkedString {language, value}.
		return MarkupContent{Kind: MarkupKindMarkdown, Value: fenced(v)}
	default:
		return MarkupContent{Kind: MarkupKindPlainText}
	}
}

func markupText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	if v.IsObject() {
		return fenced(v)
	}
	return ""
}

func fenced(v gjson.Result) string {
	lang := v.Get("language").String()
	val := v.Get("value").String()
	if val == "" {
		return ""
	}
	return "```" + lang + "\n" + val + "\n```"
}

func joinBlocks(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

// ParsePrepareRenameResult decodes a prepareRename response. Accepts null,
// a bare Range, or {range, placeholder}; defaultBehavior results are
// treated as no result since the client cannot compute the range itself.
func ParsePrepareRenameResult(raw json.RawMessage) *PrepareRenameResult {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	if v.Type == gjson.Null || !v.IsObject() {
		return nil
	}

	if inner := v.Get("range"); inner.Exists() {
		var r PrepareRenameResult
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil
		}
		return &r
	}
	if v.Get("defaultBehavior").Exists() {
		return nil
	}
	var rng Range
	if err := json.Unmarshal(raw, &rng); err != nil {
		return nil
	}
	return &PrepareRenameResult{Range: rng}
}

// ParseDocumentSymbolResult decodes a documentSymbol response. Accepts null,
// a hierarchical DocumentSymbol array, or a flat SymbolInformation array,
// which is lifted into childless DocumentSymbols.
func ParseDocumentSymbolResult(raw json.RawMessage) []DocumentSymbol {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	if !v.IsArray() {
		return nil
	}
	arr := v.Array()
	if len(arr) == 0 {
		return []DocumentSymbol{}
	}

	if arr[0].Get("location").Exists() {
		var infos []SymbolInformation
		if err := json.Unmarshal(raw, &infos); err != nil {
			return nil
		}
		syms := make([]DocumentSymbol, len(infos))
		for i, info := range infos {
			syms[i] = DocumentSymbol{
				Name:           info.Name,
				Detail:         info.ContainerName,
				Kind:           info.Kind,
				Range:          info.Location.Range,
				SelectionRange: info.Location.Range,
			}
		}
		return syms
	}

	var syms []DocumentSymbol
	if err := json.Unmarshal(raw, &syms); err != nil {
		return nil
	}
	return syms
}

// ParseCodeActionResult decodes a codeAction response. The result array may
// mix CodeAction objects and bare Commands; commands are wrapped so callers
// see a uniform slice.
func ParseCodeActionResult(raw json.RawMessage) []CodeAction {
	if len(raw) == 0 {
		return nil
	}
	v := gjson.ParseBytes(raw)
	if !v.IsArray() {
		return nil
	}

	actions := make([]CodeAction, 0, len(v.Array()))
	for _, e := range v.Array() {
		if !e.IsObject() {
			continue
		}
		if e.Get("command").Type == gjson.String {
			var cmd Command
			if err := json.Unmarshal([]byte(e.Raw), &cmd); err != nil {
				continue
			}
			actions = append(actions, CodeAction{Title: cmd.Title, Command: &cmd})
			continue
		}
		var act CodeAction
		if err := json.Unmarshal([]byte(e.Raw), &act); err != nil {
			continue
		}
		actions = append(actions, act)
	}
	return actions
}

// ParseTextEditResult decodes a formatting response.
func ParseTextEditResult(raw json.RawMessage) []TextEdit {
	if len(raw) == 0 {
		return nil
	}
	if gjson.ParseBytes(raw).Type == gjson.Null {
		return nil
	}
	var edits []TextEdit
	if err := json.Unmarshal(raw, &edits); err != nil {
		return nil
	}
	return edits
}

// ParseWorkspaceEditResult decodes a rename response.
func ParseWorkspaceEditResult(raw json.RawMessage) *WorkspaceEdit {
	if len(raw) == 0 {
		return nil
	}
	if gjson.ParseBytes(raw).Type == gjson.Null {
		return nil
	}
	var edit WorkspaceEdit
	if err := json.Unmarshal(raw, &edit); err != nil {
		return nil
	}
	return &edit
}

// ParseSignatureHelpResult decodes a signatureHelp response.
func ParseSignatureHelpResult(raw json.RawMessage) *SignatureHelp {
	if len(raw) == 0 {
		return nil
	}
	if gjson.ParseBytes(raw).Type == gjson.Null {
		return nil
	}
	var help SignatureHelp
	if err := json.Unmarshal(raw, &help); err != nil {
		return nil
	}
	if len(help.Signatures) == 0 {
		return nil
	}
	return &help
}
