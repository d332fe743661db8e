package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/postgres/migrations"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
)

// Store is a PostgreSQL-based storage that provides access to the metadata
// and vector store interfaces through wrapper types.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and applies pending migrations.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening pool: %w", domain.ErrVectorStoreUnavailable, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, classify(err))
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// MetadataStore returns a MetadataStore interface backed by this store.
func (s *Store) MetadataStore() driven.MetadataStore {
	return &metadataStore{store: s}
}

// VectorStore returns a VectorStore interface backed by this store.
// A positive dimensions rejects vectors of any other size.
func (s *Store) VectorStore(dimensions int) driven.VectorStore {
	return &vectorStore{store: s, dimensions: dimensions}
}

// StoredDimensions returns the size of the vectors already in the store,
// or 0 when it holds no chunks.
func (s *Store) StoredDimensions(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, "SELECT vector_dims(embedding) FROM chunks LIMIT 1").Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading stored dimensions: %w", classify(err))
	}
	return n, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(ctx context.Context, fsys embed.FS) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.pool.QueryRow(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		// Exec without arguments uses the simple protocol, which accepts
		// several statements in one call.
		if _, err := s.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// classify tags retryable PostgreSQL failures with domain.ErrTimeout.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57014":
			// serialization failure, deadlock, lock not available, statement timeout
			return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
		case "23505":
			return fmt.Errorf("%w: duplicate key: %w", domain.ErrInvalidInput, err)
		}
	}

	if pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}
	return err
}

// ==================== Metadata Store ====================

// metadataStore implements driven.MetadataStore.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

const documentColumns = `id, filename, content_type, size_bytes, user_id, storage_path,
	status, status_error, chunk_count, created_at, updated_at`

// InsertDocument stores a new document row.
func (s *metadataStore) InsertDocument(ctx context.Context, doc *domain.Document) (string, error) {
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}
	status := doc.Status
	if status == "" {
		status = domain.DocumentProcessing
	}
	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, id, doc.Filename, doc.ContentType, doc.SizeBytes, doc.Owner(), doc.StoragePath,
		string(status), doc.StatusError, doc.ChunkCount, created.UTC(), updated.UTC())
	if err != nil {
		return "", fmt.Errorf("inserting document: %w", classify(err))
	}
	return id, nil
}

// GetDocument retrieves a document by ID.
func (s *metadataStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// ListDocuments returns a user's documents, newest first.
func (s *metadataStore) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE $1 = '' OR user_id = $1
		ORDER BY created_at DESC, seq DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", classify(err))
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", classify(err))
	}

	return docs, nil
}

// UpdateStatus records the processing state of a document.
func (s *metadataStore) UpdateStatus(
	ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, message string,
) error {
	tag, err := s.store.pool.Exec(ctx, `
		UPDATE documents
		SET status = $1, chunk_count = $2, status_error = $3, updated_at = $4
		WHERE id = $5
	`, string(status), chunkCount, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating document status: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document row.
func (s *metadataStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1", id); err != nil {
		return fmt.Errorf("deleting document: %w", classify(err))
	}
	return nil
}

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store      *Store
	dimensions int
}

var _ driven.VectorStore = (*vectorStore)(nil)

const chunkColumns = `seq, document_id, chunk_index, content, start_offset, end_offset, embedding, user_id, filename`

// Upsert replaces the chunk set of a document in one transaction.
func (s *vectorStore) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	for i, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", domain.ErrPersistence, c.Index)
		}
		if s.dimensions > 0 && len(c.Embedding) != s.dimensions {
			return fmt.Errorf("%w: %w: chunk %d has %d dimensions, want %d",
				domain.ErrPersistence, domain.ErrDimensionMismatch, i, len(c.Embedding), s.dimensions)
		}
	}

	tx, err := s.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", domain.ErrPersistence, classify(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("%w: clearing chunks: %w", domain.ErrPersistence, classify(err))
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
			INSERT INTO chunks (document_id, chunk_index, content, start_offset, end_offset, embedding, user_id, filename)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, documentID, c.Index, c.Text, c.Start, c.End,
			pgvector.NewVector(c.Embedding), domain.OwnerOrDefault(c.UserID), c.Filename)
	}

	results := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("%w: saving chunk %d: %w", domain.ErrPersistence, c.Index, classify(err))
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("%w: saving chunks: %w", domain.ErrPersistence, classify(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: committing transaction: %w", domain.ErrPersistence, classify(err))
	}
	return nil
}

// Search ranks the chunks matching filter by cosine distance in the database.
func (s *vectorStore) Search(
	ctx context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	if s.dimensions > 0 && len(query) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrDimensionMismatch, len(query), s.dimensions)
	}
	if topK <= 0 || len(query) == 0 {
		return nil, nil
	}

	// pgvector returns NaN for zero-magnitude vectors and PostgreSQL sorts
	// NaN after every number. Mapping it to distance 1 (similarity 0) keeps
	// those rows above negative similarities before LIMIT applies.
	rows, err := s.store.pool.Query(ctx, `
		SELECT `+chunkColumns+`,
			COALESCE(NULLIF(embedding <=> $1, 'NaN'::float8), 1) AS distance
		FROM chunks
		WHERE ($2 = '' OR user_id = $2) AND ($3 = '' OR document_id = $3)
			AND vector_dims(embedding) = $5
		ORDER BY distance ASC, seq ASC
		LIMIT $4
	`, pgvector.NewVector(query), filter.UserID, filter.DocumentID, topK, len(query))
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", classify(err))
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var distance *float64
		chunk, err := scanChunk(rows, &distance)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.ScoredChunk{Chunk: *chunk, Score: score(distance)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", classify(err))
	}
	return results, nil
}

// score converts a cosine distance into a cosine similarity.
// Undefined distances (zero-magnitude vectors) score 0.
func score(distance *float64) float64 {
	if distance == nil || math.IsNaN(*distance) {
		return 0
	}
	return 1 - *distance
}

// Chunks returns a document's chunks ordered by index.
func (s *vectorStore) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT `+chunkColumns+`, NULL::float8
		FROM chunks WHERE document_id = $1
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", classify(err))
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var distance *float64
		chunk, err := scanChunk(rows, &distance)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", classify(err))
	}

	return chunks, nil
}

// DeleteDocument removes every chunk of a document.
func (s *vectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM chunks WHERE document_id = $1", documentID); err != nil {
		return fmt.Errorf("deleting chunks: %w", classify(err))
	}
	return nil
}

// Dimensions returns the configured vector size.
func (s *vectorStore) Dimensions() int {
	return s.dimensions
}

// Close is a no-op; the owning Store holds the pool.
func (s *vectorStore) Close() error {
	return nil
}

// ==================== Helper Functions ====================

// scanDocument scans a single document row.
func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var status string

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentType, &doc.SizeBytes, &doc.UserID,
		&doc.StoragePath, &status, &doc.StatusError, &doc.ChunkCount,
		&doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", classify(err))
	}
	doc.Status = domain.DocumentStatus(status)

	return &doc, nil
}

// scanChunk scans a chunk row followed by its distance column.
func scanChunk(row pgx.Row, distance **float64) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var seq int64
	var embedding pgvector.Vector

	if err := row.Scan(&seq, &chunk.DocumentID, &chunk.Index, &chunk.Text, &chunk.Start, &chunk.End,
		&embedding, &chunk.UserID, &chunk.Filename, distance); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", classify(err))
	}
	chunk.Embedding = embedding.Slice()

	return &chunk, nil
}
