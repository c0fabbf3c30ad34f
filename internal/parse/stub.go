//go:build !cgo

package parse

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when structural parsing is unavailable because the
// binary was built without CGO (tree-sitter requires it).
var ErrNoCGO = errors.New("structural parsing requires CGO (tree-sitter)")

// Parser wraps tree-sitter parsing functionality.
// This is a stub implementation for non-CGO builds.
type Parser struct{}

// NewParser creates a new parser. The stub parser fails every parse.
func NewParser() *Parser {
	return &Parser{}
}

// IsAvailable reports whether structural parsing is available in this build.
func IsAvailable() bool {
	return false
}

// ParseFile is unavailable without CGO.
func (p *Parser) ParseFile(ctx context.Context, path string) (*FileInfo, error) {
	return nil, ErrNoCGO
}

// ParseSource is unavailable without CGO.
func (p *Parser) ParseSource(ctx context.Context, path string, source []byte, lang Language) (*FileInfo, error) {
	return nil, ErrNoCGO
}
