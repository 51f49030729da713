package extract

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML extracts the visible text of an HTML document, dropping script and
// style nodes.
type HTML struct{}

func (HTML) Extract(_ context.Context, r io.Reader, _ string) (string, int, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", 0, err
	}
	doc.Find("script, style, noscript").Remove()

	var parts []string
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	if len(parts) == 0 {
		parts = append(parts, doc.Text())
	}

	text := collapseWhitespace(strings.Join(parts, "\n"))
	if text == "" {
		return "", 0, ErrNoContent
	}
	return text, 0, nil
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}
