// Package chunker provides a sliding token-window chunking processor.
package chunker

import (
	"context"
	"strings"

	"github.com/mitiak/raggy/internal/core/domain"
)

// DefaultWindowTokens is the default number of tokens per chunk.
const DefaultWindowTokens = domain.DefaultWindowTokens

// DefaultOverlapRatio is the default fraction of a window repeated in the next one.
const DefaultOverlapRatio = domain.DefaultOverlapRatio

// Processor splits document content into overlapping token windows.
// It implements the PostProcessor interface.
type Processor struct {
	windowTokens int
	overlapRatio float64
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithWindowTokens sets the window size in tokens.
func WithWindowTokens(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.windowTokens = n
		}
	}
}

// WithOverlapRatio sets the overlap as a fraction of the window.
func WithOverlapRatio(r float64) Option {
	return func(p *Processor) {
		if r >= 0 && r < 1 {
			p.overlapRatio = r
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		windowTokens: DefaultWindowTokens,
		overlapRatio: DefaultOverlapRatio,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	texts := Split(doc.Content, p.windowTokens, p.overlapRatio)

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Text:       text,
		}
	}

	return chunks, nil
}

// OverlapTokens returns max(1, floor(window*ratio)), capped so the
// window always advances by at least one token.
func OverlapTokens(window int, ratio float64) int {
	overlap := int(float64(window) * ratio)
	if overlap < 1 {
		overlap = 1
	}
	if overlap > window-1 {
		overlap = window - 1
	}
	return overlap
}

// Split collapses whitespace and cuts content into windows of at most
// window tokens. Consecutive windows share OverlapTokens tokens and the
// last window always ends at the final token.
//
// Content with no tokens is returned verbatim as a single chunk.
func Split(content string, window int, ratio float64) []string {
	if window <= 0 {
		window = DefaultWindowTokens
	}

	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return []string{content}
	}
	if len(tokens) <= window {
		return []string{strings.Join(tokens, " ")}
	}

	step := window - OverlapTokens(window, ratio)
	chunks := make([]string, 0, (len(tokens)-window)/step+2)

	for start := 0; ; start += step {
		end := start + window
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}

	return chunks
}
