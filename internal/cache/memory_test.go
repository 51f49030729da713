package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zgai/chatlibrary/internal/vectorstore"
)

func countingRetrieve(calls *int, result []vectorstore.Passage, err error) RetrieveFunc {
	return func(context.Context, string) ([]vectorstore.Passage, error) {
		*calls++
		return result, err
	}
}

func TestMemoryCache_HitSkipsRetrieve(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()
	want := []vectorstore.Passage{{Content: "passage", Score: 0.9}}

	calls := 0
	got, err := c.GetOrRetrieve(ctx, "what is gin", countingRetrieve(&calls, want, nil))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, calls)

	got, err = c.GetOrRetrieve(ctx, "what is gin", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, want, got, "second call must be served from cache")
	assert.Equal(t, 1, calls)
}

func TestMemoryCache_NormalizesWhitespace(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	calls := 0
	_, err := c.GetOrRetrieve(ctx, "query", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	_, err = c.GetOrRetrieve(ctx, "  query \n", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestMemoryCache_ErrorNotCached(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	calls := 0
	_, err := c.GetOrRetrieve(ctx, "query", countingRetrieve(&calls, nil, errors.New("index down")))
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrRetrieve(ctx, "query", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a failed retrieval must not poison the key")
}

func TestMemoryCache_ClearsAboveCapacity(t *testing.T) {
	c := NewMemoryCache(3)
	ctx := context.Background()

	calls := 0
	for i := 0; i < 3; i++ {
		_, err := c.GetOrRetrieve(ctx, "q"+strconv.Itoa(i), countingRetrieve(&calls, nil, nil))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())

	// The fourth distinct key pushes the count past capacity and resets
	// the whole map.
	_, err := c.GetOrRetrieve(ctx, "q3", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = c.GetOrRetrieve(ctx, "q0", countingRetrieve(&calls, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, 5, calls, "earlier keys are gone after the reset")
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := c.GetOrRetrieve(ctx, "q"+strconv.Itoa(j%10), func(context.Context, string) ([]vectorstore.Passage, error) {
					return []vectorstore.Passage{{Content: "p"}}, nil
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 10)
}
