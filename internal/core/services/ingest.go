package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mitiak/raggy/internal/contentaddr"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService is the write path: dedup, chunk, embed and persist.
type IngestService struct {
	docStore  driven.DocumentStore
	pipeline  driven.PostProcessorPipeline
	embedding driven.EmbeddingService
	now       func() time.Time
	newID     func() string
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) IngestOption {
	return func(s *IngestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how document IDs are minted.
func WithIDGenerator(newID func() string) IngestOption {
	return func(s *IngestService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	docStore driven.DocumentStore,
	pipeline driven.PostProcessorPipeline,
	embedding driven.EmbeddingService,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:  docStore,
		pipeline:  pipeline,
		embedding: embedding,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores the document described by req together with its chunks.
// Identical content from the same source returns the stored document
// without computing anything.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash := contentaddr.ContentHash(req.Content)

	existing, err := s.findWithChunks(ctx, req.SourceKind, req.SourceLocation, hash)
	if err == nil {
		logger.Event("ingest_deduplicated", "document_id", existing.ID, "source_kind", req.SourceKind)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find document: %w", err)
	}

	now := s.now().UTC()
	fetchedAt := now
	if !req.FetchedAt.IsZero() {
		fetchedAt = req.FetchedAt.UTC()
	}

	doc := &domain.Document{
		ID:             s.newID(),
		SourceKind:     req.SourceKind,
		SourceLocation: req.SourceLocation,
		Title:          req.Title,
		Content:        req.Content,
		ContentHash:    hash,
		Metadata:       copyMetadata(req.Metadata),
		FetchedAt:      fetchedAt,
		CreatedAt:      now,
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d embeddings for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}

	dims := s.embedding.Dimensions()
	for i := range chunks {
		if len(vectors[i]) != dims {
			return nil, fmt.Errorf("%w: embedding has %d dimensions, provider declares %d",
				domain.ErrDimensionMismatch, len(vectors[i]), dims)
		}
		chunks[i].Embedding = vectors[i]
		chunks[i].CreatedAt = now
	}
	doc.Chunks = chunks

	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("save document: %w", err)
		}
		// A concurrent ingest of the same content won the insert.
		winner, findErr := s.findWithChunks(ctx, req.SourceKind, req.SourceLocation, hash)
		if findErr != nil {
			return nil, fmt.Errorf("save document: %w", err)
		}
		logger.Event("ingest_deduplicated", "document_id", winner.ID, "source_kind", req.SourceKind, "race", true)
		return winner, nil
	}

	logger.Event("ingest_completed",
		"document_id", doc.ID,
		"source_kind", doc.SourceKind,
		"chunks", len(doc.Chunks),
	)
	return doc, nil
}

func (s *IngestService) findWithChunks(
	ctx context.Context, kind domain.SourceKind, location, hash string,
) (*domain.Document, error) {
	doc, err := s.docStore.FindDocument(ctx, kind, location, hash)
	if err != nil {
		return nil, err
	}
	chunks, err := s.docStore.GetChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	doc.Chunks = chunks
	return doc, nil
}

func copyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
