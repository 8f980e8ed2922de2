package lsp

import (
	"testing"
	"time"
)

func TestTimeouts_For(t *testing.T) {
	tt := DefaultTimeouts()
	tests := []struct {
		method string
		want   time.Duration
	}{
		{MethodInitialize, 15 * time.Second},
		{MethodCompletion, 20 * time.Second},
		{MethodReferences, 15 * time.Second},
		{MethodFormatting, 10 * time.Second},
		{MethodRename, 10 * time.Second},
		{MethodPrepareRename, 5 * time.Second},
		{MethodCodeAction, 10 * time.Second},
		{MethodDocumentSymbol, 10 * time.Second},
		{MethodShutdown, 2 * time.Second},
		{MethodHover, 5 * time.Second},
		{MethodDefinition, 5 * time.Second},
		{"some/unknownMethod", 5 * time.Second},
	}
	for _, tc := range tests {
		if got := tt.For(tc.method); got != tc.want {
			t.Errorf("For(%q) = %v, want %v", tc.method, got, tc.want)
		}
	}
}

func TestTimeouts_ZeroFieldsFallBack(t *testing.T) {
	var tt Timeouts // all zero
	if got := tt.For(MethodCompletion); got != 20*time.Second {
		t.Errorf("For(completion) on zero table = %v, want 20s", got)
	}
	if got := tt.For(MethodHover); got != 5*time.Second {
		t.Errorf("For(hover) on zero table = %v, want 5s", got)
	}

	partial := Timeouts{Completion: time.Minute}
	if got := partial.For(MethodCompletion); got != time.Minute {
		t.Errorf("For(completion) = %v, want 1m", got)
	}
	if got := partial.For(MethodShutdown); got != 2*time.Second {
		t.Errorf("For(shutdown) = %v, want 2s", got)
	}
}
