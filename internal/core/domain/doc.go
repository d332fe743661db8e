// Package domain defines the core business entities for docrag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested file and its metadata row
//   - Chunk: An overlapping text window of a document, the unit of retrieval
//   - ScoredChunk: A chunk returned by similarity search with its score
//   - AnswerRecord: A generated answer and the sources it cites
//   - RawDocument: Uploaded bytes before text extraction
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
