package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService is the retrieval engine: embed the query, run a filtered
// nearest-neighbour search and score the results.
type SearchService struct {
	docStore  driven.DocumentStore
	embedding driven.EmbeddingService
}

// NewSearchService creates a new search service.
func NewSearchService(docStore driven.DocumentStore, embedding driven.EmbeddingService) *SearchService {
	return &SearchService{
		docStore:  docStore,
		embedding: embedding,
	}
}

// Search returns at most topK candidates ordered by score descending.
func (s *SearchService) Search(
	ctx context.Context, query string, topK int, filters domain.SearchFilters,
) ([]domain.Candidate, error) {
	query, err := validateQuery(query, topK, domain.MaxSearchTopK, filters)
	if err != nil {
		return nil, err
	}
	return s.retrieve(ctx, query, topK, filters)
}

// retrieve runs an already-validated query.
func (s *SearchService) retrieve(
	ctx context.Context, query string, topK int, filters domain.SearchFilters,
) ([]domain.Candidate, error) {
	start := time.Now()
	logger.Event("retrieval_started", "top_k", topK, "filtered", !filters.IsEmpty())

	vec, err := s.embedding.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != s.embedding.Dimensions() {
		return nil, fmt.Errorf("%w: query embedding has %d dimensions, provider declares %d",
			domain.ErrDimensionMismatch, len(vec), s.embedding.Dimensions())
	}

	matches, err := s.docStore.SearchChunks(ctx, vec, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, domain.Candidate{
			Chunk:    m.Chunk,
			Document: m.Document,
			Score:    domain.ClampScore(m.Distance),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	logger.Event("retrieval_completed",
		"top_k", topK,
		"results", len(candidates),
		"ms", time.Since(start).Milliseconds(),
	)
	return candidates, nil
}

// validateQuery rejects bad input before any embedding or store call.
func validateQuery(query string, topK, maxTopK int, filters domain.SearchFilters) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if topK < domain.MinTopK || topK > maxTopK {
		return "", fmt.Errorf("%w: top_k must be between %d and %d, got %d",
			domain.ErrInvalidInput, domain.MinTopK, maxTopK, topK)
	}
	if err := filters.Validate(); err != nil {
		return "", err
	}
	return query, nil
}
