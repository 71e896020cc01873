package services

import (
	"context"
	"time"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driving"
	"github.com/mitiak/raggy/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// Answer selection bounds.
const (
	// answerFanOut is the minimum candidate pool retrieved per answer.
	answerFanOut = 20

	minContext = 6
	maxContext = 10
)

// AnswerService assembles extractive answers: the answer text is the top
// candidate's chunk verbatim and every selected candidate is cited.
type AnswerService struct {
	search *SearchService
}

// NewAnswerService creates a new answer service on top of search.
func NewAnswerService(search *SearchService) *AnswerService {
	return &AnswerService{search: search}
}

// Answer retrieves candidates and extracts a grounded answer.
func (s *AnswerService) Answer(
	ctx context.Context, query string, topK int, filters domain.SearchFilters,
) (*domain.Answer, error) {
	query, err := validateQuery(query, topK, domain.MaxAnswerTopK, filters)
	if err != nil {
		return nil, err
	}

	retrieveStart := time.Now()
	candidates, err := s.search.retrieve(ctx, query, max(answerFanOut, topK), filters)
	if err != nil {
		return nil, err
	}
	retrieveMs := durationMs(time.Since(retrieveStart))

	genStart := time.Now()
	answer, err := assemble(candidates, topK)
	if err != nil {
		return nil, err
	}
	answer.RetrieveMs = retrieveMs
	answer.GenMs = durationMs(time.Since(genStart))
	answer.Filters = filters

	logger.Event("rag_answer_completed",
		"top_k", topK,
		"citations", len(answer.Citations),
		"unknown", answer.IsUnknown(),
		"confidence", answer.Confidence,
		"retrieve_ms", answer.RetrieveMs,
		"gen_ms", answer.GenMs,
	)
	return answer, nil
}

// assemble applies the selection policy to ranked candidates.
func assemble(candidates []domain.Candidate, topK int) (*domain.Answer, error) {
	if len(candidates) == 0 {
		return domain.NewUnknownAnswer(), nil
	}

	n := min(max(topK, minContext), maxContext)
	selected := candidates[:min(n, len(candidates))]

	citations := make([]domain.Citation, len(selected))
	var total float64
	for i, c := range selected {
		citations[i] = domain.CitationFor(c)
		total += c.Score
	}

	return domain.NewAnswer(selected[0].Chunk.Text, citations, total/float64(len(selected)))
}

// durationMs converts d to fractional milliseconds.
func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
