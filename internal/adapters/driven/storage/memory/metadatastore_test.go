package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestMetadataStore_InsertAndGet(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()

	id, err := store.InsertDocument(ctx, &domain.Document{
		ID:       "doc-1",
		Filename: "lease.pdf",
		Content:  "transient text",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", doc.Filename)
	assert.Equal(t, domain.DefaultUserID, doc.UserID)
	assert.Equal(t, domain.DocumentProcessing, doc.Status)
	assert.Empty(t, doc.Content)
}

func TestMetadataStore_InsertAssignsID(t *testing.T) {
	store := NewMetadataStore()

	id, err := store.InsertDocument(context.Background(), &domain.Document{Filename: "a.txt"})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestMetadataStore_InsertDuplicate(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()

	_, err := store.InsertDocument(ctx, &domain.Document{ID: "doc-1"})
	require.NoError(t, err)
	_, err = store.InsertDocument(ctx, &domain.Document{ID: "doc-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMetadataStore_GetMissing(t *testing.T) {
	store := NewMetadataStore()

	_, err := store.GetDocument(context.Background(), "nope")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadataStore_ListFiltersByUserNewestFirst(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	now := time.Now()

	_, _ = store.InsertDocument(ctx, &domain.Document{ID: "old", UserID: "alice", CreatedAt: now.Add(-time.Hour)})
	_, _ = store.InsertDocument(ctx, &domain.Document{ID: "new", UserID: "alice", CreatedAt: now})
	_, _ = store.InsertDocument(ctx, &domain.Document{ID: "other", UserID: "bob", CreatedAt: now})

	docs, err := store.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)
	assert.Equal(t, "old", docs[1].ID)

	all, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMetadataStore_UpdateStatus(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	_, _ = store.InsertDocument(ctx, &domain.Document{ID: "doc-1"})

	require.NoError(t, store.UpdateStatus(ctx, "doc-1", domain.DocumentFailed, 0, "embed: embedding provider timed out"))

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	assert.Equal(t, "embed: embedding provider timed out", doc.StatusError)

	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", domain.DocumentCompleted, 1, ""), domain.ErrNotFound)
}

func TestMetadataStore_Delete(t *testing.T) {
	store := NewMetadataStore()
	ctx := context.Background()
	_, _ = store.InsertDocument(ctx, &domain.Document{ID: "doc-1"})

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
