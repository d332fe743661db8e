package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestObjectStorage_RoundTrip(t *testing.T) {
	storage := NewObjectStorage()
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, "guest/doc/a.txt", []byte("hello"), "text/plain"))

	data, err := storage.Get(ctx, "guest/doc/a.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, storage.Delete(ctx, "guest/doc/a.txt"))
	_, err = storage.Get(ctx, "guest/doc/a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestObjectStorage_DeleteMissing(t *testing.T) {
	assert.NoError(t, NewObjectStorage().Delete(context.Background(), "nothing"))
}
