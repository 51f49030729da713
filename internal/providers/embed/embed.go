package embed

import "context"

// Embedder converts free text into a vector representation.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}
