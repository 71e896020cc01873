package driving

import (
	"context"

	"github.com/mitiak/raggy/internal/core/domain"
)

// SearchService is the retrieval engine.
type SearchService interface {
	// Search returns at most topK candidates ordered by score descending.
	Search(ctx context.Context, query string, topK int, filters domain.SearchFilters) ([]domain.Candidate, error)
}

// AnswerService assembles grounded, citation-backed answers.
type AnswerService interface {
	// Answer retrieves candidates and extracts an answer from the best one,
	// or returns the "I don't know" answer when nothing was retrieved.
	Answer(ctx context.Context, query string, topK int, filters domain.SearchFilters) (*domain.Answer, error)
}
