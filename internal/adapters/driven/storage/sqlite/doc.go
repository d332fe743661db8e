// Package sqlite provides a SQLite-based implementation of the document and
// vector store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - MetadataStore: document rows and their processing status
//   - VectorStore: chunks with float32 embeddings, searched by cosine similarity
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Search
//
// Embeddings are stored as little-endian float32 BLOBs. Search loads the
// rows matching the filter and ranks them in process, so it is linear in the
// number of stored chunks.
//
// # Data Location
//
// By default, the database is stored at ~/.docrag/data/docrag.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
