package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/logger"
)

// IngestionPipeline turns an uploaded file into persisted, embedded chunks.
//
// It walks Received -> Parsed -> Chunked -> Embedded -> Persisted and stops in
// Failed at the first fatal error. Readers of the vector store see either none
// or all of a document's chunks.
type IngestionPipeline struct {
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	embedder    driven.EmbeddingService
	vectors     driven.VectorStore

	// Optional collaborators.
	metadata driven.MetadataStore
	storage  driven.ObjectStorage

	warnSizeBytes int64
	maxSizeBytes  int64

	newID func() string
	now   func() time.Time
}

// IngestionOption configures an IngestionPipeline.
type IngestionOption func(*IngestionPipeline)

// WithMetadataStore records a metadata row per document.
func WithMetadataStore(store driven.MetadataStore) IngestionOption {
	return func(p *IngestionPipeline) {
		p.metadata = store
	}
}

// WithObjectStorage keeps the raw bytes of every upload.
func WithObjectStorage(storage driven.ObjectStorage) IngestionOption {
	return func(p *IngestionPipeline) {
		p.storage = storage
	}
}

// WithSizeLimits sets the size above which a warning is added and the size
// above which a file is rejected. Zero disables either limit.
func WithSizeLimits(warnBytes, maxBytes int64) IngestionOption {
	return func(p *IngestionPipeline) {
		p.warnSizeBytes = warnBytes
		p.maxSizeBytes = maxBytes
	}
}

// WithIDGenerator replaces the UUID document id generator.
func WithIDGenerator(fn func() string) IngestionOption {
	return func(p *IngestionPipeline) {
		p.newID = fn
	}
}

// NewIngestionPipeline creates an ingestion pipeline.
func NewIngestionPipeline(
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	opts ...IngestionOption,
) *IngestionPipeline {
	p := &IngestionPipeline{
		normalisers:   normalisers,
		pipeline:      pipeline,
		embedder:      embedder,
		vectors:       vectors,
		warnSizeBytes: domain.DefaultWarnSizeBytes,
		maxSizeBytes:  domain.DefaultMaxSizeBytes,
		newID:         uuid.NewString,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FallbackDocumentID derives a document id from a storage path.
// It is used when the metadata store cannot assign one.
func FallbackDocumentID(storagePath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docrag:"+storagePath)).String()
}

// StoragePath returns the object storage location of an upload.
func StoragePath(userID, id, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join(domain.OwnerOrDefault(userID), id, name)
}

// Ingest runs one upload through the pipeline.
// Every call creates a new document id, even for identical bytes.
func (p *IngestionPipeline) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	logger.Debug("File: %q (%s, %d bytes)", req.Filename, req.ContentType, len(req.Content))

	if p.embedder == nil {
		return nil, domain.NewStageError(domain.StageEmbed, domain.ErrEmbeddingUnavailable, "", nil)
	}
	if p.vectors == nil {
		return nil, domain.NewStageError(domain.StagePersist, domain.ErrVectorStoreUnavailable, "", nil)
	}

	var warnings []string

	// Received -> Parsed
	if len(req.Content) == 0 {
		return nil, domain.NewStageError(domain.StageParse, domain.ErrParse, "file is empty", nil)
	}
	size := int64(len(req.Content))
	if p.maxSizeBytes > 0 && size > p.maxSizeBytes {
		return nil, domain.NewStageError(domain.StageParse, domain.ErrParse,
			fmt.Sprintf("file is %s, above the %s limit", humanBytes(size), humanBytes(p.maxSizeBytes)), nil)
	}
	if p.warnSizeBytes > 0 && size > p.warnSizeBytes {
		warnings = append(warnings, fmt.Sprintf("large file (%s); ingestion may be slow", humanBytes(size)))
	}

	parsed, err := p.parse(ctx, req.Filename, req.ContentType, req.Content)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, parsed.Warnings...)

	// Identity: object storage first, then the metadata row with its fallback.
	now := p.now()
	doc := &domain.Document{
		ID:          p.newID(),
		Filename:    req.Filename,
		ContentType: parsed.MIMEType,
		SizeBytes:   size,
		UserID:      domain.OwnerOrDefault(req.UserID),
		Status:      domain.DocumentProcessing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc.StoragePath = StoragePath(doc.UserID, doc.ID, req.Filename)

	if p.storage != nil {
		if err := p.storage.Put(ctx, doc.StoragePath, req.Content, parsed.MIMEType); err != nil {
			logger.Warn("storing raw file failed: %v", err)
			warnings = append(warnings, "raw file could not be stored; reprocessing will not be available")
		}
	}

	var recorded bool
	doc.ID, recorded, warnings = p.insertMetadata(ctx, doc, warnings)

	doc.Content = parsed.Content
	doc.Chunking = req.Chunking

	count, warnings, err := p.index(ctx, doc, warnings)
	if err != nil {
		if recorded {
			p.markFailed(ctx, doc.ID, err)
		}
		return nil, err
	}

	if recorded {
		if err := p.metadata.UpdateStatus(ctx, doc.ID, domain.DocumentCompleted, count, ""); err != nil {
			logger.Warn("updating document status failed: %v", err)
			warnings = append(warnings, "document status could not be updated")
		}
	}

	logger.Debugw("ingest complete", "document_id", doc.ID, "chunks", count, "warnings", len(warnings))
	return &domain.IngestResult{
		DocumentID:    doc.ID,
		ChunksIndexed: count,
		Warnings:      nonNil(warnings),
		State:         domain.StatePersisted,
	}, nil
}

// Reindex replaces the chunks of an existing document with freshly parsed,
// chunked and embedded content. The document keeps its id.
func (p *IngestionPipeline) Reindex(ctx context.Context, doc *domain.Document, content []byte) (*domain.IngestResult, error) {
	logger.Section("Reindex")
	if len(content) == 0 {
		return nil, domain.NewStageError(domain.StageParse, domain.ErrParse, "file is empty", nil)
	}

	parsed, err := p.parse(ctx, doc.Filename, doc.ContentType, content)
	if err != nil {
		return nil, err
	}

	work := *doc
	work.Content = parsed.Content
	work.UserID = doc.Owner()

	count, warnings, err := p.index(ctx, &work, parsed.Warnings)
	if err != nil {
		p.markFailed(ctx, doc.ID, err)
		return nil, err
	}
	if count == 0 {
		// Nothing replaced the previous chunk set.
		if err := p.vectors.DeleteDocument(ctx, doc.ID); err != nil {
			return nil, stageError(domain.StagePersist, domain.ErrPersistence, "chunk persistence", err)
		}
	}
	if p.metadata != nil {
		if err := p.metadata.UpdateStatus(ctx, doc.ID, domain.DocumentCompleted, count, ""); err != nil {
			warnings = append(warnings, "document status could not be updated")
		}
	}

	return &domain.IngestResult{
		DocumentID:    doc.ID,
		ChunksIndexed: count,
		Warnings:      nonNil(warnings),
		State:         domain.StatePersisted,
	}, nil
}

// parse extracts text. Any failure is a ParseError.
func (p *IngestionPipeline) parse(
	ctx context.Context, filename, contentType string, content []byte,
) (*driven.NormaliseResult, error) {
	if p.normalisers == nil {
		return nil, domain.NewStageError(domain.StageParse, domain.ErrParse, "no document parsers configured", nil)
	}

	result, err := p.normalisers.Normalise(ctx, &domain.RawDocument{
		Filename: filename,
		MIMEType: contentType,
		Content:  content,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			ct := contentType
			if ct == "" {
				ct = "unknown"
			}
			return nil, domain.NewStageError(domain.StageParse, domain.ErrParse,
				fmt.Sprintf("unsupported content type %q", ct), err)
		}
		return nil, stageError(domain.StageParse, domain.ErrParse, "document parsing", err)
	}

	logger.Debug("Parsed %d characters as %s", len(result.Content), result.MIMEType)
	return result, nil
}

// insertMetadata writes the metadata row and reports whether it exists.
// A failure never blocks indexing: the document continues under an id
// derived from its storage path.
func (p *IngestionPipeline) insertMetadata(
	ctx context.Context, doc *domain.Document, warnings []string,
) (string, bool, []string) {
	if p.metadata == nil {
		return doc.ID, false, warnings
	}

	id, err := p.metadata.InsertDocument(ctx, doc)
	if err == nil && id != "" {
		return id, true, warnings
	}

	fallback := FallbackDocumentID(doc.StoragePath)
	logger.Warn("metadata insert failed, using fallback id %s: %v", fallback, err)
	return fallback, false, append(warnings,
		fmt.Sprintf("%s; using fallback document id %s", domain.ErrMetadataInsert, fallback))
}

// index runs Parsed -> Chunked -> Embedded -> Persisted for doc.Content.
func (p *IngestionPipeline) index(
	ctx context.Context, doc *domain.Document, warnings []string,
) (int, []string, error) {
	// Parsed -> Chunked
	chunks, err := p.pipeline.Process(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, warnings, stageError(domain.StageChunk, domain.ErrParse, "chunking", ctxErr)
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return 0, warnings, domain.NewStageError(domain.StageChunk, domain.ErrInvalidInput, "invalid chunking options", err)
		}
		return 0, warnings, stageError(domain.StageChunk, domain.ErrParse, "chunking", err)
	}

	kept := chunks[:0]
	blank := 0
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			blank++
			continue
		}
		c.DocumentID = doc.ID
		kept = append(kept, c)
	}
	chunks = kept
	if blank > 0 {
		warnings = append(warnings, fmt.Sprintf("skipped %d blank chunk(s)", blank))
	}
	logger.Debug("Chunked into %d chunks", len(chunks))

	if len(chunks) == 0 {
		warnings = append(warnings, "no extractable text; document indexed with 0 chunks")
		return 0, warnings, nil
	}

	// Chunked -> Embedded
	if err := p.embed(ctx, chunks); err != nil {
		return 0, warnings, err
	}

	// Embedded -> Persisted, retried once.
	if err := p.vectors.Upsert(ctx, doc.ID, chunks); err != nil {
		if ctx.Err() != nil {
			return 0, warnings, stageError(domain.StagePersist, domain.ErrPersistence, "chunk persistence", err)
		}
		logger.Warn("upsert failed, retrying once: %v", err)
		if err := p.vectors.Upsert(ctx, doc.ID, chunks); err != nil {
			return 0, warnings, stageError(domain.StagePersist, domain.ErrPersistence, "chunk persistence", err)
		}
	}

	return len(chunks), warnings, nil
}

// embed fills in the Embedding of every chunk or fails without touching any.
func (p *IngestionPipeline) embed(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return stageError(domain.StageEmbed, domain.ErrEmbedding, "embedding provider", err)
	}
	if len(vectors) != len(chunks) {
		return domain.NewStageError(domain.StageEmbed, domain.ErrEmbedding,
			fmt.Sprintf("embedding provider returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
	}

	want := p.vectors.Dimensions()
	if want == 0 {
		want = p.embedder.Dimensions()
	}
	for i, v := range vectors {
		if len(v) == 0 || (want > 0 && len(v) != want) {
			return stageError(domain.StageEmbed, domain.ErrEmbedding, "embedding provider",
				fmt.Errorf("%w: chunk %d has %d dimensions, want %d", domain.ErrDimensionMismatch, i, len(v), want))
		}
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	logger.Debug("Embedded %d chunks with %s", len(chunks), p.embedder.ModelName())
	return nil
}

// markFailed records the failure on the metadata row, best effort.
func (p *IngestionPipeline) markFailed(ctx context.Context, id string, cause error) {
	if p.metadata == nil {
		return
	}
	// The request context may be the reason for the failure.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.metadata.UpdateStatus(ctx, id, domain.DocumentFailed, 0, cause.Error()); err != nil {
		logger.Warn("recording failure for %s: %v", id, err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
