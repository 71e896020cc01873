// Package identity stamps chunks with their content-addressed identity.
package identity

import (
	"context"

	"github.com/mitiak/raggy/internal/contentaddr"
	"github.com/mitiak/raggy/internal/core/domain"
)

// Metadata keys written on every chunk.
const (
	MetaSourceKind = "source_kind"
	MetaChunkIndex = "chunk_index"
)

// Processor assigns deterministic ids, hashes and token counts to chunks.
// It runs after the chunker and renumbers chunks 0..N-1.
type Processor struct{}

// New creates a new identity processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "identity"
}

// Process stamps each chunk in place and returns the same slice.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		c := &chunks[i]
		c.Index = i
		c.DocumentID = doc.ID
		c.ID = contentaddr.ChunkID(doc.ID, i, c.Text)
		c.ContentHash = contentaddr.ContentHash(c.Text)
		c.TokenCount = contentaddr.TokenCount(c.Text)

		meta := make(map[string]any, len(c.Metadata)+2)
		for k, v := range c.Metadata {
			meta[k] = v
		}
		meta[MetaSourceKind] = doc.SourceKind.String()
		meta[MetaChunkIndex] = i
		c.Metadata = meta
	}
	return chunks, nil
}
