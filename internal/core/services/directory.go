package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// Ensure DirectoryIngestService implements the interface.
var _ driving.DirectoryIngestService = (*DirectoryIngestService)(nil)

// DirectoryIngestService feeds files from a connector through the
// normaliser registry into the ingest service, recording an ingest job.
type DirectoryIngestService struct {
	factory  driven.ConnectorFactory
	registry driven.NormaliserRegistry
	ingest   driving.IngestService
	jobStore driven.IngestJobStore
	now      func() time.Time
}

// NewDirectoryIngestService creates a new directory ingest service.
func NewDirectoryIngestService(
	factory driven.ConnectorFactory,
	registry driven.NormaliserRegistry,
	ingest driving.IngestService,
	jobStore driven.IngestJobStore,
) *DirectoryIngestService {
	return &DirectoryIngestService{
		factory:  factory,
		registry: registry,
		ingest:   ingest,
		jobStore: jobStore,
		now:      time.Now,
	}
}

// IngestDirectory ingests every supported file below root. Per-file
// failures do not stop the run; they mark the job as failed once all
// files have been attempted.
func (s *DirectoryIngestService) IngestDirectory(ctx context.Context, root string) (*domain.IngestJob, error) {
	job := &domain.IngestJob{
		ID:         uuid.NewString(),
		SourceKind: domain.SourceKindMarkdown,
		Source:     root,
		Status:     domain.JobStatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}

	runErr := s.run(ctx, root, job)
	job.Finish(s.now().UTC(), runErr)

	// The caller's context may be done; the final status must still land.
	if err := s.jobStore.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		return job, fmt.Errorf("save job: %w", err)
	}

	logger.Event("ingest_job_finished",
		"job_id", job.ID,
		"status", job.Status,
		"docs", job.DocsProcessed,
		"chunks", job.ChunksCreated,
	)
	return job, runErr
}

func (s *DirectoryIngestService) run(ctx context.Context, root string, job *domain.IngestJob) error {
	connector, err := s.factory.Create(ctx, root)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	if err := connector.Validate(ctx); err != nil {
		return fmt.Errorf("validate %s: %w", root, err)
	}

	job.Start(s.now().UTC())
	if err := s.jobStore.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	docsCh, errsCh := connector.FullSync(ctx)

	var failed int
	var firstErr error
	fail := func(err error) {
		failed++
		if firstErr == nil {
			firstErr = err
		}
	}

	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			logger.Warn("read failed: %v", err)
			fail(err)

		case raw, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			logger.Debug("Processing: %s", raw.URI)
			doc, err := s.ingestOne(ctx, &raw)
			if err != nil {
				if errors.Is(err, domain.ErrNotImplemented) {
					logger.Debug("Skipping %s: %v", raw.URI, err)
					continue
				}
				logger.Warn("Failed to ingest %s: %v", raw.URI, err)
				fail(fmt.Errorf("%s: %w", raw.URI, err))
				continue
			}
			job.DocsProcessed++
			job.ChunksCreated += len(doc.Chunks)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed, first: %w", failed, firstErr)
	}
	return nil
}

// Watch re-ingests files as they are created or written until ctx is
// cancelled. Deleted files leave their documents in place.
func (s *DirectoryIngestService) Watch(ctx context.Context, root string, onIngest func(*domain.Document)) error {
	connector, err := s.factory.Create(ctx, root)
	if err != nil {
		return fmt.Errorf("create connector: %w", err)
	}
	defer connector.Close()

	changes, err := connector.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			if change.Type == domain.ChangeDeleted {
				logger.Debug("Ignoring delete of %s", change.Document.URI)
				continue
			}
			doc, err := s.ingestOne(ctx, &change.Document)
			if err != nil {
				logger.Warn("Failed to ingest %s: %v", change.Document.URI, err)
				continue
			}
			if onIngest != nil {
				onIngest(doc)
			}
		}
	}
}

func (s *DirectoryIngestService) ingestOne(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	result, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}
	return s.ingest.Ingest(ctx, result.Request)
}
