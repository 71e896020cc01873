package domain

import "time"

// JobStatus is the lifecycle state of an ingest job.
type JobStatus string

// Job statuses.
const (
	JobStatusPending JobStatus = "pending"
	JobStatusRunning JobStatus = "running"
	JobStatusSuccess JobStatus = "success"
	JobStatusFailure JobStatus = "failure"
)

// IsTerminal returns true once the job can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusSuccess || s == JobStatusFailure
}

// IngestJob tracks a batch ingestion run.
type IngestJob struct {
	ID            string
	SourceKind    SourceKind
	Source        string
	Status        JobStatus
	DocsProcessed int
	ChunksCreated int
	ErrorMessage  string
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
}

// Start marks the job as running.
func (j *IngestJob) Start(now time.Time) {
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Finish marks the job terminal, recording err when non-nil.
func (j *IngestJob) Finish(now time.Time, err error) {
	j.FinishedAt = &now
	if err != nil {
		j.Status = JobStatusFailure
		j.ErrorMessage = err.Error()
		return
	}
	j.Status = JobStatusSuccess
}
