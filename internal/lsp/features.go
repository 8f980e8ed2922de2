package lsp

import (
	"context"
)

// Feature requests. Every method flushes any held didChange first so the
// server answers against the buffer the user is looking at, then degrades
// to a nil result on any failure.

// Completion requests completions at a position.
func (c *Client) Completion(ctx context.Context, path string, pos Position) *CompletionList {
	c.docs.Flush()
	params := CompletionParams{
		TextDocumentPositionParams: c.posParams(path, pos),
		Context:                    &CompletionContext{TriggerKind: CompletionTriggerKindInvoked},
	}
	return ParseCompletionResult(c.request(ctx, MethodCompletion, params))
}

// CompletionTriggered requests completions after typing a trigger character.
func (c *Client) CompletionTriggered(ctx context.Context, path string, pos Position, trigger string) *CompletionList {
	c.docs.Flush()
	params := CompletionParams{
		TextDocumentPositionParams: c.posParams(path, pos),
		Context: &CompletionContext{
			TriggerKind:      CompletionTriggerKindTriggerCharacter,
			TriggerCharacter: trigger,
		},
	}
	return ParseCompletionResult(c.request(ctx, MethodCompletion, params))
}

// Hover requests hover information at a position.
func (c *Client) Hover(ctx context.Context, path string, pos Position) *Hover {
	c.docs.Flush()
	params := HoverParams{TextDocumentPositionParams: c.posParams(path, pos)}
	return ParseHoverResult(c.request(ctx, MethodHover, params))
}

// Definition requests the definition sites of the symbol at a position.
func (c *Client) Definition(ctx context.Context, path string, pos Position) []Location {
	c.docs.Flush()
	return ParseLocationResult(c.request(ctx, MethodDefinition, c.posParams(path, pos)))
}

// Implementation requests the implementation sites of the symbol at a position.
func (c *Client) Implementation(ctx context.Context, path string, pos Position) []Location {
	c.docs.Flush()
	return ParseLocationResult(c.request(ctx, MethodImplementation, c.posParams(path, pos)))
}

// References requests every reference to the symbol at a position,
// including its declaration.
func (c *Client) References(ctx context.Context, path string, pos Position) []Location {
	c.docs.Flush()
	params := ReferenceParams{
		TextDocumentPositionParams: c.posParams(path, pos),
		Context:                    ReferenceContext{IncludeDeclaration: true},
	}
	return ParseLocationResult(c.request(ctx, MethodReferences, params))
}

// SignatureHelp requests call signature information at a position.
func (c *Client) SignatureHelp(ctx context.Context, path string, pos Position) *SignatureHelp {
	c.docs.Flush()
	params := SignatureHelpParams{TextDocumentPositionParams: c.posParams(path, pos)}
	return ParseSignatureHelpResult(c.request(ctx, MethodSignatureHelp, params))
}

// DocumentSymbols requests the symbol outline of a document.
func (c *Client) DocumentSymbols(ctx context.Context, path string) []DocumentSymbol {
	c.docs.Flush()
	params := DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
	}
	return ParseDocumentSymbolResult(c.request(ctx, MethodDocumentSymbol, params))
}

// CodeActions requests the actions available for a range, given the
// diagnostics currently shown there.
func (c *Client) CodeActions(ctx context.Context, path string, rng Range, diags []Diagnostic) []CodeAction {
	c.docs.Flush()
	if diags == nil {
		diags = []Diagnostic{}
	}
	params := CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
		Range:        rng,
		Context:      CodeActionContext{Diagnostics: diags},
	}
	return ParseCodeActionResult(c.request(ctx, MethodCodeAction, params))
}

// Formatting requests whole-document formatting edits.
func (c *Client) Formatting(ctx context.Context, path string, opts FormattingOptions) []TextEdit {
	c.docs.Flush()
	params := DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
		Options:      opts,
	}
	return ParseTextEditResult(c.request(ctx, MethodFormatting, params))
}

// PrepareRename asks whether the symbol at a position can be renamed, and
// over what range. Nil means the server declined or does not support it.
func (c *Client) PrepareRename(ctx context.Context, path string, pos Position) *PrepareRenameResult {
	c.docs.Flush()
	params := c.posParams(path, pos)
	return ParsePrepareRenameResult(c.request(ctx, MethodPrepareRename, params))
}

// Rename requests a workspace-wide rename of the symbol at a position.
func (c *Client) Rename(ctx context.Context, path string, pos Position, newName string) *WorkspaceEdit {
	c.docs.Flush()
	params := RenameParams{
		TextDocumentPositionParams: c.posParams(path, pos),
		NewName:                    newName,
	}
	return ParseWorkspaceEditResult(c.request(ctx, MethodRename, params))
}

func (c *Client) posParams(path string, pos Position) TextDocumentPositionParams {
	return TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: FilePathToURI(path)},
		Position:     pos,
	}
}
