package driven

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// DocumentStore persists documents with their chunks and answers
// filtered nearest-neighbour queries over chunk embeddings.
type DocumentStore interface {
	// FindDocument looks a document up by its idempotency key.
	// Returns domain.ErrNotFound when absent.
	FindDocument(ctx context.Context, kind domain.SourceKind, location, contentHash string) (*domain.Document, error)

	// SaveDocument stores a document and doc.Chunks in one transaction.
	// Returns domain.ErrAlreadyExists if the idempotency key is taken;
	// nothing is written in that case.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID without its chunks.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// DeleteDocument removes a document and, by cascade, its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents newest first.
	ListDocuments(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// SearchChunks returns up to k chunks nearest to query that satisfy filters,
	// joined to their owning documents.
	SearchChunks(ctx context.Context, query []float32, k int, filters domain.SearchFilters) ([]ChunkMatch, error)

	// Stats returns document, chunk and job counts.
	Stats(ctx context.Context) (domain.DocumentStats, error)
}

// ChunkMatch is a raw search result before scoring.
type ChunkMatch struct {
	Chunk    domain.Chunk
	Document domain.Document

	// Distance is the cosine distance to the query vector.
	Distance float64
}

// IngestJobStore persists ingest job bookkeeping.
type IngestJobStore interface {
	// SaveJob inserts or updates a job.
	SaveJob(ctx context.Context, job *domain.IngestJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, id string) (*domain.IngestJob, error)

	// ListJobs returns the most recent jobs first.
	ListJobs(ctx context.Context, limit int) ([]domain.IngestJob, error)
}
