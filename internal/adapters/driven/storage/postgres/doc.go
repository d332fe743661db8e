// Package postgres provides a PostgreSQL implementation of the document and
// vector store ports, for deployments that share one index between machines.
//
// Connections come from a pgx/v5 pool. Embeddings are stored in a pgvector
// "vector" column and ranked in the database with the cosine distance
// operator (<=>); equal distances fall back to insertion order.
//
// The pgvector extension must be installable by the connecting role. The
// first migration runs CREATE EXTENSION IF NOT EXISTS vector.
package postgres
