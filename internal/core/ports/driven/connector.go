package driven

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// Connector reads raw documents from a data source.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Validate checks that the source exists and is readable.
	Validate(ctx context.Context) error

	// FullSync streams every document in the source.
	// The error channel carries per-document failures and is closed when done.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch streams changes until ctx is cancelled.
	Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error)

	// Close releases resources.
	Close() error
}

// ConnectorFactory creates connectors for a source root.
type ConnectorFactory interface {
	// Create returns a connector reading from root.
	Create(ctx context.Context, root string) (Connector, error)
}
