package driving

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// IngestService is the write path: dedup, chunk, embed, persist.
type IngestService interface {
	// Ingest stores a document and its chunks, or returns the existing
	// document when identical content from the same source was already ingested.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error)
}

// DirectoryIngestService ingests every supported file below a directory.
type DirectoryIngestService interface {
	// IngestDirectory walks root, ingests each file and records an ingest job.
	IngestDirectory(ctx context.Context, root string) (*domain.IngestJob, error)

	// Watch re-ingests files as they change until ctx is cancelled.
	Watch(ctx context.Context, root string, onIngest func(*domain.Document)) error
}
