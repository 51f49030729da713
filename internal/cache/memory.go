package cache

import (
	"context"
	"strings"
	"sync"

	"github.com/zgai/chatlibrary/internal/vectorstore"
)

// MemoryCache is the default process-local retrieval cache. Eviction is a
// full reset once the key count exceeds capacity; identical prompts arrive
// in bursts, so precision beyond that is not worth an LRU.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string][]vectorstore.Passage
	capacity int
}

func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryCache{
		entries:  make(map[string][]vectorstore.Passage),
		capacity: capacity,
	}
}

func (c *MemoryCache) GetOrRetrieve(ctx context.Context, query string, retrieve RetrieveFunc) ([]vectorstore.Passage, error) {
	key := normalize(query)

	c.mu.Lock()
	if hit, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return hit, nil
	}
	c.mu.Unlock()

	// The index call runs outside the lock; duplicate concurrent misses
	// are acceptable.
	passages, err := retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = passages
	if len(c.entries) > c.capacity {
		c.entries = make(map[string][]vectorstore.Passage)
	}
	c.mu.Unlock()

	return passages, nil
}

// Len reports the current key count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func normalize(query string) string {
	return strings.TrimSpace(query)
}
