// Package hash provides a deterministic, offline embedding service.
//
// Vectors are derived from a SHA-512 digest of the text and carry no
// semantic meaning. They make ingestion and retrieval reproducible
// without a model server.
package hash

import (
	"context"
	"crypto/sha512"
	"fmt"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// ModelName is reported for vectors produced by this service.
const ModelName = "sha512"

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = domain.DefaultDimensions

// EmbeddingService maps text to vectors by cycling a SHA-512 digest.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hash embedding service.
// Non-positive dimensions fall back to DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Vector returns the embedding of text with the given dimension.
// Each component is (b/255)*2-1 for digest byte b, cycling the digest.
func Vector(text string, dimensions int) []float32 {
	digest := sha512.Sum512([]byte(text))
	out := make([]float32, dimensions)
	for i := range out {
		b := digest[i%len(digest)]
		out[i] = float32((float64(b)/255)*2 - 1)
	}
	return out
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	return Vector(text, s.dimensions), nil
}

// EmbedBatch generates embeddings for multiple texts in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = Vector(text, s.dimensions)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds; there is nothing to reach.
func (s *EmbeddingService) Ping(_ context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
