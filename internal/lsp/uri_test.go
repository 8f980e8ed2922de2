package lsp

import "testing"

func TestFilePathToURI_RoundTrip(t *testing.T) {
	tests := []struct {
		path string
		uri  DocumentURI
	}{
		{"/home/user/project/main.go", "file:///home/user/project/main.go"},
		{"/home/user/My File.cs", "file:///home/user/My%20File.cs"},
		{"/tmp/a/b/c.rs", "file:///tmp/a/b/c.rs"},
	}
	for _, tt := range tests {
		got := FilePathToURI(tt.path)
		if got != tt.uri {
			t.Errorf("FilePathToURI(%q) = %q, want %q", tt.path, got, tt.uri)
		}
		back, err := URIToFilePath(got)
		if err != nil {
			t.Errorf("URIToFilePath(%q): %v", got, err)
			continue
		}
		if back != tt.path {
			t.Errorf("round trip of %q produced %q", tt.path, back)
		}
	}
}

func TestURIToFilePath_RejectsNonFileScheme(t *testing.T) {
	if _, err := URIToFilePath("https://example.com/x.go"); err == nil {
		t.Error("expected error for non-file scheme")
	}
}

func TestURIToFilePath_WindowsDriveLetter(t *testing.T) {
	got, err := URIToFilePath("file:///C:/Users/dev/main.go")
	if err != nil {
		t.Fatalf("URIToFilePath: %v", err)
	}
	if got != "C:/Users/dev/main.go" {
		t.Errorf("path = %q, want %q", got, "C:/Users/dev/main.go")
	}
}

func TestIsFileURI(t *testing.T) {
	if !IsFileURI("file:///a.go") {
		t.Error("file:///a.go should be a file URI")
	}
	if IsFileURI("untitled:Untitled-1") {
		t.Error("untitled: should not be a file URI")
	}
}
