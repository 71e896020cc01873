package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Verify interface implementation.
var _ driven.IngestJobStore = (*jobStore)(nil)

// jobStore wraps Store to implement IngestJobStore.
type jobStore struct {
	store *Store
}

// SaveJob inserts or updates an ingest job.
func (s *jobStore) SaveJob(ctx context.Context, job *domain.IngestJob) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", domain.ErrInvalidInput)
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingest_jobs (id, source_kind, source, status, docs_processed,
			chunks_created, error_message, started_at, finished_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			docs_processed = excluded.docs_processed,
			chunks_created = excluded.chunks_created,
			error_message = excluded.error_message,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at
	`,
		job.ID,
		string(job.SourceKind),
		job.Source,
		string(job.Status),
		job.DocsProcessed,
		job.ChunksCreated,
		nullString(job.ErrorMessage),
		nullTime(job.StartedAt),
		nullTime(job.FinishedAt),
		job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

// GetJob retrieves an ingest job by ID.
func (s *jobStore) GetJob(ctx context.Context, id string) (*domain.IngestJob, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_kind, source, status, docs_processed, chunks_created,
			error_message, started_at, finished_at, created_at
		FROM ingest_jobs WHERE id = ?
	`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return job, err
}

// ListJobs returns the most recent jobs first.
func (s *jobStore) ListJobs(ctx context.Context, limit int) ([]domain.IngestJob, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_kind, source, status, docs_processed, chunks_created,
			error_message, started_at, finished_at, created_at
		FROM ingest_jobs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.IngestJob //nolint:prealloc // size unknown from query
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row scanner) (*domain.IngestJob, error) {
	var (
		job                   domain.IngestJob
		kind, status          string
		errMsg                sql.NullString
		startedAt, finishedAt sql.NullInt64
		createdAt             int64
	)
	err := row.Scan(&job.ID, &kind, &job.Source, &status, &job.DocsProcessed,
		&job.ChunksCreated, &errMsg, &startedAt, &finishedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.SourceKind = domain.SourceKind(kind)
	job.Status = domain.JobStatus(status)
	job.ErrorMessage = errMsg.String
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	if startedAt.Valid {
		t := time.Unix(0, startedAt.Int64).UTC()
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64).UTC()
		job.FinishedAt = &t
	}
	return &job, nil
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
