package driving

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// DocumentService manages stored documents.
type DocumentService interface {
	// Get retrieves a document by ID with its chunks.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents newest first.
	List(ctx context.Context, limit, offset int) ([]domain.Document, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error

	// Stats returns counts of stored entities.
	Stats(ctx context.Context) (domain.DocumentStats, error)

	// Jobs returns the most recent ingest jobs.
	Jobs(ctx context.Context, limit int) ([]domain.IngestJob, error)
}
