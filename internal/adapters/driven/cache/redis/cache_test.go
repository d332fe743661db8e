package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCache connects to the server named by DOCRAG_TEST_REDIS_ADDR.
func setupCache(t *testing.T) *Cache {
	t.Helper()
	addr := os.Getenv("DOCRAG_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("DOCRAG_TEST_REDIS_ADDR not set")
	}

	cache, err := New(context.Background(), Config{
		Addr:   addr,
		TTL:    time.Minute,
		Prefix: fmt.Sprintf("docrag-test:%d:", time.Now().UnixNano()),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, in, decode(encode(in)))
	assert.Empty(t, decode(encode(nil)))
}

func TestNew_RequiresAddr(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestNew_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := New(ctx, Config{Addr: "127.0.0.1:1"})

	assert.Error(t, err)
}

func TestCache_GetSet(t *testing.T) {
	cache := setupCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", []float32{1, 2, 3}))

	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)
}
