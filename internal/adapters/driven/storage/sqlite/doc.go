// Package sqlite provides a SQLite-based implementation of the storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements the store interfaces
// through a single database connection:
//
//   - DocumentStore: Documents, chunks and filtered vector search
//   - IngestJobStore: Batch ingestion bookkeeping
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// A unique expression index on (source_kind, COALESCE(source_location, ''),
// content_hash) makes ingestion idempotent even under concurrent writers.
//
// # Vectors
//
// Embeddings are stored as little-endian float32 BLOBs and mirrored into an
// in-memory driven.VectorIndex, rebuilt from the table when the store opens.
// The vector dimension is recorded on first open; reopening with a different
// dimension fails with domain.ErrDimensionMismatch.
//
// # Data Location
//
// By default, the database is stored at ~/.raggy/data/raggy.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
