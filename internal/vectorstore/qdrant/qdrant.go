package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zgai/chatlibrary/internal/providers/embed"
	"github.com/zgai/chatlibrary/internal/vectorstore"
)

// Store is a minimal REST client to Qdrant using cosine distance.
// Queries are embedded through the configured Embedder before searching.
type Store struct {
	url        string
	apiKey     string
	collection string
	embedder   embed.Embedder
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func New(cfg Config, embedder embed.Embedder) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	if cfg.URL == "" {
		cfg.URL = "http://localhost:6333"
	}
	if cfg.Collection == "" {
		cfg.Collection = "document_chunks"
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		client:     &http.Client{Timeout: timeout},
	}
}

// Init creates the collection if missing. Qdrant returns 200 when the
// collection already exists with the same schema.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.send(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

func (s *Store) Add(ctx context.Context, entries []vectorstore.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		vec, err := s.embedder.Embed(ctx, e.Content)
		if err != nil {
			return fmt.Errorf("embed entry %s: %w", e.ID, err)
		}
		payload := map[string]any{"content": e.Content}
		for k, v := range e.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      e.ID,
			"vector":  vec,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	return s.send(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) Search(ctx context.Context, query string, topK int, threshold float32) ([]vectorstore.Passage, error) {
	if topK <= 0 {
		topK = 5
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	req := map[string]any{
		"vector":          vec,
		"limit":           topK,
		"with_payload":    true,
		"score_threshold": threshold,
	}
	var resp struct {
		Result []struct {
			Score   float32        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.send(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	passages := make([]vectorstore.Passage, 0, len(resp.Result))
	for _, r := range resp.Result {
		content, _ := r.Payload["content"].(string)
		meta := make(map[string]any, len(r.Payload))
		for k, v := range r.Payload {
			if k != "content" {
				meta[k] = v
			}
		}
		passages = append(passages, vectorstore.Passage{Content: content, Metadata: meta, Score: r.Score})
	}
	return passages, nil
}

func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", s.url, s.collection)
	return s.send(ctx, http.MethodPost, url, body, nil)
}

func (s *Store) send(ctx context.Context, method, url string, body, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
