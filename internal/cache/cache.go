package cache

import (
	"context"

	"github.com/zgai/chatlibrary/internal/vectorstore"
)

// RetrieveFunc performs the actual index search on a cache miss.
type RetrieveFunc func(ctx context.Context, query string) ([]vectorstore.Passage, error)

// RetrievalCache memoizes search results per exact query text. It is an
// optimization, not a correctness mechanism: concurrent misses on the same
// key may both hit the index, and the last result wins.
type RetrievalCache interface {
	GetOrRetrieve(ctx context.Context, query string, retrieve RetrieveFunc) ([]vectorstore.Passage, error)
}
