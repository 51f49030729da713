package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	ctx := context.Background()

	text, pages, err := PlainText{}.Extract(ctx, strings.NewReader("  hello world \n"), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, 0, pages)

	_, _, err = PlainText{}.Extract(ctx, strings.NewReader("   \n\t"), "a.txt")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestHTML_DropsScriptAndStyle(t *testing.T) {
	ctx := context.Background()
	page := `<html><head><style>body{color:red}</style></head>
<body><h1>Title</h1><script>alert(1)</script><p>Visible text.</p></body></html>`

	text, pages, err := HTML{}.Extract(ctx, strings.NewReader(page), "a.html")
	require.NoError(t, err)
	assert.Equal(t, 0, pages)
	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Visible text.")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestHTML_Empty(t *testing.T) {
	_, _, err := HTML{}.Extract(context.Background(), strings.NewReader("<html><body></body></html>"), "a.html")
	assert.ErrorIs(t, err, ErrNoContent)
}

type staticExtractor struct {
	text string
}

func (s staticExtractor) Extract(context.Context, io.Reader, string) (string, int, error) {
	return s.text, 0, nil
}

func TestRegistry_RoutesByExtension(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(staticExtractor{text: "from fallback"})
	reg.Register(".TXT", staticExtractor{text: "from txt"})

	text, _, err := reg.Extract(ctx, strings.NewReader(""), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "from txt", text)

	text, _, err = reg.Extract(ctx, strings.NewReader(""), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "from fallback", text)
}

func TestRegistry_NoFallback(t *testing.T) {
	reg := NewRegistry(nil)

	_, _, err := reg.Extract(context.Background(), strings.NewReader(""), "report.pdf")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoContent))
}
