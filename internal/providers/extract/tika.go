package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Tika extracts text from rich formats (pdf, doc, docx, ppt, pptx) through a
// Tika server. The page count comes from a best-effort /meta call for PDFs.
type Tika struct {
	baseURL string
	client  *http.Client
}

func NewTika(baseURL string, timeout time.Duration) *Tika {
	if baseURL == "" {
		baseURL = "http://localhost:9998"
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Tika{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (t *Tika) Extract(ctx context.Context, r io.Reader, filename string) (string, int, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/tika", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("tika: %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", 0, ErrNoContent
	}

	pages := 0
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		pages = t.pageCount(ctx, body)
	}
	return text, pages, nil
}

func (t *Tika) pageCount(ctx context.Context, body []byte) int {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/meta", bytes.NewReader(body))
	if err != nil {
		return 0
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0
	}

	var meta map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return 0
	}
	switch v := meta["xmpTPg:NPages"].(type) {
	case string:
		n, _ := strconv.Atoi(v)
		return n
	case float64:
		return int(v)
	}
	return 0
}
