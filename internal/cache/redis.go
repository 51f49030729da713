package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zgai/chatlibrary/internal/vectorstore"
)

// RedisCache shares retrieval results across replicas. Unlike MemoryCache it
// relies on TTL expiry instead of a capacity reset.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) GetOrRetrieve(ctx context.Context, query string, retrieve RetrieveFunc) ([]vectorstore.Passage, error) {
	key := c.key(query)

	s, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var passages []vectorstore.Passage
		if jerr := json.Unmarshal([]byte(s), &passages); jerr == nil {
			return passages, nil
		}
		// corrupt entry: treat as miss
		_ = c.rdb.Del(ctx, key).Err()
	} else if err != redis.Nil {
		// cache unavailable is not fatal; fall through to the index
		_ = err
	}

	passages, err := retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(passages); jerr == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return passages, nil
}

func (c *RedisCache) key(query string) string {
	sum := sha256.Sum256([]byte(normalize(query)))
	return "retrieval:" + hex.EncodeToString(sum[:])
}
