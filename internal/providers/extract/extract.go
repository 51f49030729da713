package extract

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNoContent is returned when a file parses cleanly but yields no text.
var ErrNoContent = errors.New("no content extracted")

// Extractor turns a stored file into plain text. The page count is zero for
// formats without a page notion.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, filename string) (text string, pages int, err error)
}

// Registry routes a file to an extractor by extension, with an optional
// fallback for everything unlisted (typically the Tika client).
type Registry struct {
	byExt    map[string]Extractor
	fallback Extractor
}

func NewRegistry(fallback Extractor) *Registry {
	return &Registry{byExt: make(map[string]Extractor), fallback: fallback}
}

func (g *Registry) Register(ext string, e Extractor) {
	g.byExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = e
}

func (g *Registry) Extract(ctx context.Context, r io.Reader, filename string) (string, int, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if e, ok := g.byExt[ext]; ok {
		return e.Extract(ctx, r, filename)
	}
	if g.fallback == nil {
		return "", 0, errors.New("no extractor for ." + ext)
	}
	return g.fallback.Extract(ctx, r, filename)
}
