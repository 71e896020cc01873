package driven

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// Normaliser turns a raw file into an ingest request. It declares the
// MIME types it understands.
type Normaliser interface {
	SupportedMIMETypes() []string

	// Priority breaks ties when several normalisers accept a type; higher wins.
	Priority() int

	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult wraps the request a normaliser produced. Chunking
// happens later in the post-processing pipeline.
type NormaliseResult struct {
	Request domain.IngestRequest
}

// NormaliserRegistry dispatches raw documents to the best normaliser.
type NormaliserRegistry interface {
	// Normalise fails with domain.ErrNotImplemented when nothing accepts raw.MIMEType.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	Register(normaliser Normaliser)

	// SupportedMIMETypes lists every type some registered normaliser accepts.
	SupportedMIMETypes() []string
}
