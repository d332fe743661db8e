package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docrag/internal/core/domain"
	"github.com/custodia-labs/docrag/internal/core/ports/driven"
	"github.com/custodia-labs/docrag/internal/normalisers"
	"github.com/custodia-labs/docrag/internal/normalisers/plaintext"
	"github.com/custodia-labs/docrag/internal/postprocessors"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Without a fixed vector it returns a deterministic bag-of-letters vector.
type mockEmbeddingService struct {
	mu        sync.Mutex
	embedding []float32
	embedErr  error
	dims      int
	short     bool // return one vector fewer than asked
	calls     int
	texts     []string
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts = append(m.texts, texts...)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	n := len(texts)
	if m.short && n > 0 {
		n--
	}
	result := make([][]float32, n)
	for i := 0; i < n; i++ {
		if m.embedding != nil {
			result[i] = m.embedding
			continue
		}
		result[i] = letterVector(texts[i], m.Dimensions())
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return 8
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// letterVector hashes every word of text into one of dims buckets.
func letterVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%uint32(dims)]++
	}
	v[0] += 0.01
	return v
}

// mockVectorStore wraps the memory store and fails the first upserts on request.
type mockVectorStore struct {
	*memory.VectorStore
	upsertErrs  []error
	upsertCalls int
	searchErr   error
	searchCalls int
}

func newMockVectorStore(dims int) *mockVectorStore {
	return &mockVectorStore{VectorStore: memory.NewVectorStore(dims)}
}

func (m *mockVectorStore) Upsert(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	m.upsertCalls++
	if len(m.upsertErrs) > 0 {
		err := m.upsertErrs[0]
		m.upsertErrs = m.upsertErrs[1:]
		if err != nil {
			return err
		}
	}
	return m.VectorStore.Upsert(ctx, documentID, chunks)
}

func (m *mockVectorStore) Search(
	ctx context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.VectorStore.Search(ctx, query, topK, filter)
}

// mockMetadataStore wraps the memory store with injectable failures.
type mockMetadataStore struct {
	*memory.MetadataStore
	insertErr error
	updateErr error
	statuses  []domain.DocumentStatus
}

func newMockMetadataStore() *mockMetadataStore {
	return &mockMetadataStore{MetadataStore: memory.NewMetadataStore()}
}

func (m *mockMetadataStore) InsertDocument(ctx context.Context, doc *domain.Document) (string, error) {
	if m.insertErr != nil {
		return "", m.insertErr
	}
	return m.MetadataStore.InsertDocument(ctx, doc)
}

func (m *mockMetadataStore) UpdateStatus(
	ctx context.Context, id string, status domain.DocumentStatus, chunkCount int, message string,
) error {
	m.statuses = append(m.statuses, status)
	if m.updateErr != nil {
		return m.updateErr
	}
	return m.MetadataStore.UpdateStatus(ctx, id, status, chunkCount, message)
}

// mockObjectStorage wraps the memory storage with an injectable Put failure.
type mockObjectStorage struct {
	*memory.ObjectStorage
	putErr error
}

func newMockObjectStorage() *mockObjectStorage {
	return &mockObjectStorage{ObjectStorage: memory.NewObjectStorage()}
}

func (m *mockObjectStorage) Put(ctx context.Context, path string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	return m.ObjectStorage.Put(ctx, path, data, contentType)
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	response string
	err      error
	calls    int
	messages []driven.ChatMessage
	prompt   string
	opts     driven.ChatOptions
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.calls++
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockAIConfigValidator implements driven.AIConfigValidator for testing.
type mockAIConfigValidator struct {
	embedErr error
	llmErr   error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

// newConfigStore returns a TOML config store in a temporary directory.
func newConfigStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

// failingConfigStore rejects writes to one key.
type failingConfigStore struct {
	driven.ConfigStore
	failOn string
}

func (f *failingConfigStore) Set(key string, value any) error {
	if key == f.failOn {
		return errors.New("disk full")
	}
	return f.ConfigStore.Set(key, value)
}

// --- Fixtures ---

// testRig wires an ingestion pipeline to in-memory collaborators.
type testRig struct {
	embedder *mockEmbeddingService
	vectors  *mockVectorStore
	metadata *mockMetadataStore
	storage  *mockObjectStorage
	pipeline *IngestionPipeline
}

func newTestRig(opts ...IngestionOption) *testRig {
	rig := &testRig{
		embedder: &mockEmbeddingService{},
		vectors:  newMockVectorStore(8),
		metadata: newMockMetadataStore(),
		storage:  newMockObjectStorage(),
	}
	pipeline, err := postprocessors.DefaultPipeline(domain.DefaultPipelineConfig())
	if err != nil {
		panic(err)
	}
	all := append([]IngestionOption{
		WithMetadataStore(rig.metadata),
		WithObjectStorage(rig.storage),
	}, opts...)
	rig.pipeline = NewIngestionPipeline(
		normalisers.NewRegistry(plaintext.New()),
		pipeline,
		rig.embedder,
		rig.vectors,
		all...,
	)
	return rig
}

func textRequest(filename, content string) domain.IngestRequest {
	return domain.IngestRequest{
		Filename:    filename,
		Content:     []byte(content),
		ContentType: "text/plain",
	}
}
