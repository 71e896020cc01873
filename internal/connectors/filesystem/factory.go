package filesystem

import (
	"context"
	"fmt"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates filesystem connectors that share the same options.
type Factory struct {
	opts []Option
}

// NewFactory creates a factory applying opts to every connector.
func NewFactory(opts ...Option) *Factory {
	return &Factory{opts: opts}
}

// Create returns a connector for root, which may be a path or a file:// URI.
func (f *Factory) Create(ctx context.Context, root string) (driven.Connector, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := ResolvePath(root)
	if path == "" {
		return nil, fmt.Errorf("%w: directory is required", domain.ErrInvalidInput)
	}
	return New(path, f.opts...), nil
}
