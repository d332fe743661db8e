package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create a temporary directory for the test database
	tempDir, err := os.MkdirTemp("", "docrag-test-*")
	require.NoError(t, err)

	// Create store in temp directory
	store, err := NewStore(tempDir)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		assert.NoError(t, store.Close())
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func vec3(x, y, z float32) []float32 {
	return []float32{x, y, z}
}

func testChunks(documentID, user string, vectors ...[]float32) []domain.Chunk {
	chunks := make([]domain.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = domain.Chunk{
			DocumentID: documentID,
			Index:      i,
			Text:       fmt.Sprintf("%s chunk %d", documentID, i),
			Start:      i * 10,
			End:        i*10 + 12,
			Embedding:  v,
			UserID:     user,
			Filename:   documentID + ".txt",
		}
	}
	return chunks
}

// ==================== Store Tests ====================

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	assert.Equal(t, "docrag.db", filepath.Base(store.Path()))
	_, err := os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir)
	require.NoError(t, err)
	id, err := store.MetadataStore().InsertDocument(ctx, &domain.Document{Filename: "a.txt"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(tempDir)
	require.NoError(t, err)
	defer reopened.Close()

	doc, err := reopened.MetadataStore().GetDocument(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Filename)
}

func TestStoredDimensions(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	dims, err := store.StoredDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, dims)

	require.NoError(t, store.VectorStore(3).Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 0, 0))))

	dims, err = store.StoredDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dims)
}

// ==================== Metadata Store Tests ====================

func TestMetadataStore_InsertAndGet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	metadata := store.MetadataStore()

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := metadata.InsertDocument(ctx, &domain.Document{
		ID:          "doc-1",
		Filename:    "lease.pdf",
		ContentType: "application/pdf",
		SizeBytes:   2048,
		StoragePath: "guest/doc-1/lease.pdf",
		CreatedAt:   created,
		UpdatedAt:   created,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	doc, err := metadata.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Equal(t, int64(2048), doc.SizeBytes)
	assert.Equal(t, domain.DefaultUserID, doc.UserID)
	assert.Equal(t, "guest/doc-1/lease.pdf", doc.StoragePath)
	assert.Equal(t, domain.DocumentProcessing, doc.Status)
	assert.True(t, created.Equal(doc.CreatedAt), "created_at round trips")
}

func TestMetadataStore_InsertAssignsID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	id, err := store.MetadataStore().InsertDocument(context.Background(), &domain.Document{Filename: "a.txt"})

	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestMetadataStore_InsertDuplicateFails(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	metadata := store.MetadataStore()

	_, err := metadata.InsertDocument(ctx, &domain.Document{ID: "same", Filename: "a.txt"})
	require.NoError(t, err)
	_, err = metadata.InsertDocument(ctx, &domain.Document{ID: "same", Filename: "b.txt"})

	assert.Error(t, err)
}

func TestMetadataStore_GetMissing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.MetadataStore().GetDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetadataStore_ListDocuments(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	metadata := store.MetadataStore()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, d := range []struct{ id, user string }{{"a", "alice"}, {"b", "bob"}, {"c", "alice"}} {
		_, err := metadata.InsertDocument(ctx, &domain.Document{
			ID: d.id, Filename: d.id + ".txt", UserID: d.user,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}

	all, err := metadata.ListDocuments(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID, "newest first")

	alice, err := metadata.ListDocuments(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "c", alice[0].ID)
	assert.Equal(t, "a", alice[1].ID)

	none, err := metadata.ListDocuments(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMetadataStore_UpdateStatus(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	metadata := store.MetadataStore()

	_, err := metadata.InsertDocument(ctx, &domain.Document{ID: "d1", Filename: "a.txt"})
	require.NoError(t, err)

	require.NoError(t, metadata.UpdateStatus(ctx, "d1", domain.DocumentFailed, 0, "embed: embedding provider failed"))

	doc, err := metadata.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentFailed, doc.Status)
	assert.Equal(t, "embed: embedding provider failed", doc.StatusError)

	require.NoError(t, metadata.UpdateStatus(ctx, "d1", domain.DocumentCompleted, 4, ""))
	doc, err = metadata.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentCompleted, doc.Status)
	assert.Equal(t, 4, doc.ChunkCount)
	assert.Empty(t, doc.StatusError)

	assert.ErrorIs(t, metadata.UpdateStatus(ctx, "missing", domain.DocumentCompleted, 1, ""), domain.ErrNotFound)
}

func TestMetadataStore_DeleteDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	metadata := store.MetadataStore()

	_, err := metadata.InsertDocument(ctx, &domain.Document{ID: "d1", Filename: "a.txt"})
	require.NoError(t, err)

	require.NoError(t, metadata.DeleteDocument(ctx, "d1"))

	_, err = metadata.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ==================== Vector Store Tests ====================

func TestVectorStore_UpsertAndChunks(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "alice", vec3(1, 0, 0), vec3(0, 1, 0))))

	chunks, err := vectors.Chunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "d1 chunk 0", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 12, chunks[0].End)
	assert.Equal(t, "alice", chunks[0].UserID)
	assert.Equal(t, "d1.txt", chunks[0].Filename)
	assert.Equal(t, []float32{0, 1, 0}, chunks[1].Embedding)
}

func TestVectorStore_UpsertReplacesChunkSet(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 0, 0), vec3(0, 1, 0), vec3(0, 0, 1))))
	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 1, 0))))

	chunks, err := vectors.Chunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []float32{1, 1, 0}, chunks[0].Embedding)
}

func TestVectorStore_UpsertIsAllOrNothing(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 0, 0))))

	t.Run("missing embedding", func(t *testing.T) {
		bad := testChunks("d1", "guest", vec3(1, 0, 0), nil)
		err := vectors.Upsert(ctx, "d1", bad)
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})

	t.Run("wrong dimension", func(t *testing.T) {
		bad := testChunks("d1", "guest", vec3(1, 0, 0), []float32{1, 2})
		err := vectors.Upsert(ctx, "d1", bad)
		assert.ErrorIs(t, err, domain.ErrPersistence)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("duplicate chunk index rolls back", func(t *testing.T) {
		bad := testChunks("d1", "guest", vec3(0, 1, 0), vec3(0, 0, 1))
		bad[1].Index = 0
		err := vectors.Upsert(ctx, "d1", bad)
		assert.ErrorIs(t, err, domain.ErrPersistence)
	})

	chunks, err := vectors.Chunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 1, "previous chunk set is untouched")
	assert.Equal(t, []float32{1, 0, 0}, chunks[0].Embedding)
}

func TestVectorStore_UpsertCancelledContext(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.VectorStore(3).Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 0, 0)))

	assert.ErrorIs(t, err, domain.ErrPersistence)
	chunks, err := store.VectorStore(3).Chunks(context.Background(), "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestVectorStore_SearchRanksByCosine(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest",
		vec3(0, 1, 0),   // orthogonal
		vec3(1, 0.2, 0), // close
		vec3(1, 1, 0),   // 45 degrees
	)))

	hits, err := vectors.Search(ctx, vec3(1, 0, 0), 5, domain.SearchFilter{})

	require.NoError(t, err)
	require.Len(t, hits, 3, "top_k above row count returns every row")
	assert.Equal(t, 1, hits[0].Chunk.Index)
	assert.Equal(t, 2, hits[1].Chunk.Index)
	assert.Equal(t, 0, hits[2].Chunk.Index)
	assert.InDelta(t, 0.7071, hits[1].Score, 1e-3)
	assert.InDelta(t, 0, hits[2].Score, 1e-9)
}

func TestVectorStore_SearchTopK(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest",
		vec3(1, 0, 0), vec3(1, 0.1, 0), vec3(1, 0.2, 0), vec3(1, 0.3, 0))))

	hits, err := vectors.Search(ctx, vec3(1, 0, 0), 2, domain.SearchFilter{})

	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestVectorStore_SearchTiesKeepInsertionOrder(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, vectors.Upsert(ctx, id, testChunks(id, "guest", vec3(1, 1, 1))))
	}

	hits, err := vectors.Search(ctx, vec3(1, 1, 1), 3, domain.SearchFilter{})

	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "first", hits[0].Chunk.DocumentID)
	assert.Equal(t, "second", hits[1].Chunk.DocumentID)
	assert.Equal(t, "third", hits[2].Chunk.DocumentID)
}

func TestVectorStore_SearchFilters(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "a1", testChunks("a1", "alice", vec3(1, 0, 0))))
	require.NoError(t, vectors.Upsert(ctx, "a2", testChunks("a2", "alice", vec3(1, 0, 0))))
	require.NoError(t, vectors.Upsert(ctx, "b1", testChunks("b1", "bob", vec3(1, 0, 0))))

	byUser, err := vectors.Search(ctx, vec3(1, 0, 0), 10, domain.SearchFilter{UserID: "alice"})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byDoc, err := vectors.Search(ctx, vec3(1, 0, 0), 10, domain.SearchFilter{DocumentID: "b1"})
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.Equal(t, "bob", byDoc[0].Chunk.UserID)

	both, err := vectors.Search(ctx, vec3(1, 0, 0), 10, domain.SearchFilter{UserID: "alice", DocumentID: "b1"})
	require.NoError(t, err)
	assert.Empty(t, both)
}

func TestVectorStore_SearchDimensionMismatch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.VectorStore(3).Search(context.Background(), []float32{1, 0}, 5, domain.SearchFilter{})

	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestVectorStore_DeleteDocument(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	require.NoError(t, vectors.Upsert(ctx, "d1", testChunks("d1", "guest", vec3(1, 0, 0))))
	require.NoError(t, vectors.Upsert(ctx, "d2", testChunks("d2", "guest", vec3(1, 0, 0))))

	require.NoError(t, vectors.DeleteDocument(ctx, "d1"))

	hits, err := vectors.Search(ctx, vec3(1, 0, 0), 5, domain.SearchFilter{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d2", hits[0].Chunk.DocumentID)
}

func TestVectorStore_ConcurrentUpserts(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()
	vectors := store.VectorStore(3)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", i)
			errs[i] = vectors.Upsert(ctx, id, testChunks(id, "guest", vec3(1, 0, 0), vec3(0, 1, 0)))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	hits, err := vectors.Search(ctx, vec3(1, 0, 0), 20, domain.SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, hits, 16)
}

func TestFloat32Codec(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
