package vectorstore

import "context"

// Entry is one chunk submitted for indexing, keyed by its vector id.
type Entry struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// Passage is one retrieved chunk with its similarity score.
type Passage struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Score    float32        `json:"score"`
}

// Store is the similarity index consumed by the ingestion pipeline and the
// chat orchestrator. Implementations embed query text themselves.
type Store interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query string, topK int, threshold float32) ([]Passage, error)
	Delete(ctx context.Context, ids []string) error
}
