// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for ingestion and retrieval to work:
//
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - VectorStore: Persists chunks with vectors and runs similarity search
//   - NormaliserRegistry: Extracts text from uploaded bytes
//   - PostProcessorPipeline: Sanitises text and splits it into chunks
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer synthesis and summaries. Without it, queries fail with ErrLLMUnavailable.
//   - MetadataStore: Document rows. Without it, ids fall back to the storage path.
//   - ObjectStorage: Raw bytes. Without it, documents cannot be reprocessed.
//   - EmbeddingCache: Memoises vectors across requests.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, normaliser or post-processor package
package driven
