package services

import (
	"context"
	"fmt"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Paging defaults for List.
const (
	DefaultListLimit = 20
	MaxListLimit     = 500
)

// DocumentService manages stored documents and ingest job history.
type DocumentService struct {
	docStore driven.DocumentStore
	jobStore driven.IngestJobStore
}

// NewDocumentService creates a new document service.
// jobStore may be nil, in which case Jobs returns ErrNotImplemented.
func NewDocumentService(docStore driven.DocumentStore, jobStore driven.IngestJobStore) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		jobStore: jobStore,
	}
}

// Get retrieves a document by ID with its chunks.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	doc.Chunks = chunks
	return doc, nil
}

// List returns documents newest first.
func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must not exceed %d", domain.ErrInvalidInput, MaxListLimit)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	return s.docStore.ListDocuments(ctx, limit, offset)
}

// Delete removes a document and, by cascade, its chunks.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	logger.Event("document_deleted", "document_id", documentID)
	return nil
}

// Stats returns counts of stored entities.
func (s *DocumentService) Stats(ctx context.Context) (domain.DocumentStats, error) {
	return s.docStore.Stats(ctx)
}

// Jobs returns the most recent ingest jobs.
func (s *DocumentService) Jobs(ctx context.Context, limit int) ([]domain.IngestJob, error) {
	if s.jobStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.jobStore.ListJobs(ctx, limit)
}
