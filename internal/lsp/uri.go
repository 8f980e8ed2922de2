package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// FilePathToURI converts an absolute file path to a file:// URI. Relative
// paths are made absolute first so every document gets a stable identity.
func FilePathToURI(path string) DocumentURI {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	path = filepath.ToSlash(path)
	u := &url.URL{Scheme: "file", Path: path}
	return DocumentURI(u.String())
}

// URIToFilePath converts a file:// URI back to a local file path. It is the
// inverse of FilePathToURI for absolute paths.
func URIToFilePath(uri DocumentURI) (string, error) {
	u, err := url.Parse(string(uri))
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}

	path := u.Path
	// Windows servers produce file:///C:/path; strip the leading slash
	// when the rest is a drive-letter path.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

// IsFileURI reports whether the URI uses the file scheme.
func IsFileURI(uri DocumentURI) bool {
	return strings.HasPrefix(string(uri), "file://")
}
