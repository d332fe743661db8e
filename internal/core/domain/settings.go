package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or any compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderLocal is the in-process hashing embedder. Embeddings only.
	AIProviderLocal AIProvider = "local"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderLocal:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderLocal
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderLocal:
		return "Hashing embedder (offline)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero means the model default.
	Dimensions int

	// RequestsPerSecond caps outbound calls. Zero disables the limiter.
	RequestsPerSecond float64

	// Concurrency bounds parallel requests for providers without a batch API.
	Concurrency int

	// Timeout bounds a single provider call.
	Timeout time.Duration
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns Dimensions, or the known size of Model.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	if d, ok := EmbeddingDimensions()[e.Model]; ok {
		return d
	}
	if e.Provider == AIProviderLocal {
		return DefaultLocalDimensions
	}
	return 0
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Temperature controls randomness of answers.
	Temperature float64

	// MaxTokens caps the answer length.
	MaxTokens int

	// RequestsPerSecond caps outbound calls. Zero disables the limiter.
	RequestsPerSecond float64

	// Timeout bounds a single provider call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || l.Provider == AIProviderLocal {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreBackend selects the VectorStore and MetadataStore implementation.
type VectorStoreBackend string

// Available vector store backends.
const (
	// VectorStoreSQLite is the embedded pure-Go SQLite store.
	VectorStoreSQLite VectorStoreBackend = "sqlite"

	// VectorStorePostgres is PostgreSQL with the pgvector extension.
	VectorStorePostgres VectorStoreBackend = "postgres"

	// VectorStoreMemory keeps everything in process memory.
	VectorStoreMemory VectorStoreBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b VectorStoreBackend) IsValid() bool {
	switch b {
	case VectorStoreSQLite, VectorStorePostgres, VectorStoreMemory:
		return true
	default:
		return false
	}
}

// VectorStoreSettings holds storage configuration.
type VectorStoreSettings struct {
	// Backend selects the store implementation.
	Backend VectorStoreBackend

	// DataDir is the SQLite data directory. Empty means ~/.docrag/data.
	DataDir string

	// DSN is the PostgreSQL connection string.
	DSN string
}

// ChunkingSettings holds the default chunk window.
type ChunkingSettings struct {
	// Size is the window width in characters.
	Size int

	// Overlap is the number of characters shared by consecutive windows.
	Overlap int
}

// RetrievalSettings holds query-time defaults.
type RetrievalSettings struct {
	// TopK is the number of chunks retrieved per query.
	TopK int

	// MinScore drops hits scoring below it. Zero keeps everything.
	MinScore float64
}

// IngestSettings holds upload limits.
type IngestSettings struct {
	// WarnSizeBytes adds a warning for files larger than this.
	WarnSizeBytes int64

	// MaxSizeBytes rejects files larger than this.
	MaxSizeBytes int64

	// StorageDir is where raw uploads are kept. Empty means ~/.docrag/uploads.
	StorageDir string
}

// CacheSettings holds the embedding cache configuration.
type CacheSettings struct {
	// RedisAddr enables the Redis embedding cache when set.
	RedisAddr string

	// TTL is how long cached vectors live.
	TTL time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// VectorStore holds storage settings.
	VectorStore VectorStoreSettings

	// Chunking holds the default chunk window.
	Chunking ChunkingSettings

	// Retrieval holds query-time defaults.
	Retrieval RetrievalSettings

	// Ingest holds upload limits.
	Ingest IngestSettings

	// Cache holds the embedding cache settings.
	Cache CacheSettings

	// Pipeline holds the post-processor chain.
	Pipeline PipelineConfig
}

// Defaults for AppSettings.
const (
	DefaultChunkSize       = 1200
	DefaultChunkOverlap    = 200
	DefaultLocalDimensions = 256
	DefaultTemperature     = 0.1
	DefaultMaxTokens       = 1000
	DefaultWarnSizeBytes   = 20 << 20
	DefaultMaxSizeBytes    = 50 << 20
)

// DefaultAppSettings returns settings with sensible defaults.
// The offline hashing embedder and SQLite work out of the box;
// the LLM is left unconfigured until the user sets one up.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:    AIProviderLocal,
			Model:       "hashing",
			Dimensions:  DefaultLocalDimensions,
			Concurrency: 4,
			Timeout:     60 * time.Second,
		},
		LLM: LLMSettings{
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     120 * time.Second,
		},
		VectorStore: VectorStoreSettings{
			Backend: VectorStoreSQLite,
		},
		Chunking: ChunkingSettings{
			Size:    DefaultChunkSize,
			Overlap: DefaultChunkOverlap,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
		Ingest: IngestSettings{
			WarnSizeBytes: DefaultWarnSizeBytes,
			MaxSizeBytes:  DefaultMaxSizeBytes,
		},
		Cache: CacheSettings{
			TTL: 24 * time.Hour,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderLocal,
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderLocal:  "hashing",
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration:
// sanitise the extracted text, then split it into 1200/200 windows.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"sanitise", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": DefaultChunkSize,
				"overlap":    DefaultChunkOverlap,
			},
		},
	}
}
