package extract

import (
	"context"
	"io"
	"strings"
)

// PlainText passes txt and md files through untouched.
type PlainText struct{}

func (PlainText) Extract(_ context.Context, r io.Reader, _ string) (string, int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", 0, ErrNoContent
	}
	return text, 0, nil
}
