package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		search := &mockSearchService{
			candidates: []domain.Candidate{{
				Document: domain.Document{ID: "doc-1", Title: "Test Doc", SourceLocation: "https://example.com/doc"},
				Chunk:    domain.Chunk{ID: "chunk-1", Text: "This is the content"},
				Score:    0.95,
			}},
		}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test", TopK: 3})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, SearchResultOutput{
			ChunkID:    "chunk-1",
			DocumentID: "doc-1",
			Title:      "Test Doc",
			URL:        "https://example.com/doc",
			Score:      0.95,
			Content:    "This is the content",
		}, output.Results[0])
		assert.Equal(t, 3, search.lastTopK)
	})

	t.Run("default top_k is 10", func(t *testing.T) {
		search := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
		assert.Equal(t, 10, search.lastTopK)
	})

	t.Run("passes filters through", func(t *testing.T) {
		search := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{
			Query:   "test",
			Filters: domain.FilterParams{Product: "raggy", DateFrom: "2024-01-01"},
		})

		require.NoError(t, err)
		require.NotNil(t, search.lastFilters.Product)
		assert.Equal(t, "raggy", *search.lastFilters.Product)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *search.lastFilters.DateFrom)
	})

	t.Run("rejects malformed filters before searching", func(t *testing.T) {
		search := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{
			Query:   "test",
			Filters: domain.FilterParams{DateFrom: "2024-02-01", DateTo: "2024-01-01"},
		})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Empty(t, search.lastQuery)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		search := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})

	t.Run("rate limited", func(t *testing.T) {
		search := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: search, Answer: &mockAnswerService{}}, WithRateLimit(0.001, 1))

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "one"})
		require.NoError(t, err)
		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "two"})
		assert.ErrorIs(t, err, domain.ErrRateLimited)
		assert.Equal(t, "one", search.lastQuery)
	})
}

func TestServer_handleAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("returns grounded answer", func(t *testing.T) {
		lang := "en"
		answer, err := domain.NewAnswer("Rubber duck debugging.", []domain.Citation{{
			DocumentID: "doc-1", ChunkID: "chunk-1", Title: "Duck", URL: "https://example.com/duck", Score: 0.8,
		}}, 0.8)
		require.NoError(t, err)
		answer.RetrieveMs, answer.GenMs = 12.5, 0.25
		answer.Filters = domain.SearchFilters{Language: &lang}

		answers := &mockAnswerService{answer: answer}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: answers})

		_, output, err := server.handleAnswer(ctx, nil, AnswerInput{
			Query:       "What is duck debugging?",
			UsedFilters: domain.FilterParams{Lang: "en"},
		})

		require.NoError(t, err)
		assert.Equal(t, "Rubber duck debugging.", output.Answer)
		assert.Equal(t, []CitationOutput{{
			DocID: "doc-1", ChunkID: "chunk-1", Title: "Duck", URL: "https://example.com/duck", Score: 0.8,
		}}, output.Citations)
		assert.Equal(t, domain.FilterParams{Lang: "en"}, output.UsedFilters)
		assert.Equal(t, 0.8, output.Confidence)
		assert.InDelta(t, 12.5, output.RetrieveMs, 1e-9)
		assert.InDelta(t, 0.25, output.GenMs, 1e-9)
		assert.Equal(t, 5, answers.lastTopK)
		require.NotNil(t, answers.lastFilters.Language)
	})

	t.Run("unknown answer has empty citations", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}})

		_, output, err := server.handleAnswer(ctx, nil, AnswerInput{Query: "moon", TopK: 7})

		require.NoError(t, err)
		assert.Equal(t, domain.UnknownAnswer, output.Answer)
		assert.NotNil(t, output.Citations)
		assert.Empty(t, output.Citations)
		assert.Zero(t, output.Confidence)
	})

	t.Run("propagates validation errors", func(t *testing.T) {
		answers := &mockAnswerService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: answers})

		_, _, err := server.handleAnswer(ctx, nil, AnswerInput{Query: "x", TopK: 50})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Equal(t, 50, answers.lastTopK)
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests with markdown default", func(t *testing.T) {
		ingest := &mockIngestService{}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Ingest: ingest})

		_, output, err := server.handleIngest(ctx, nil, IngestInput{
			Title:    "Notes",
			Content:  "alpha beta",
			Metadata: map[string]any{"lang": "en"},
		})

		require.NoError(t, err)
		assert.Equal(t, IngestOutput{DocumentID: "doc-1", Title: "Notes", ContentHash: "abc123", ChunkCount: 2}, output)
		assert.Equal(t, domain.SourceKindMarkdown, ingest.lastReq.SourceKind)
		assert.Equal(t, "en", ingest.lastReq.Metadata["lang"])
	})

	t.Run("url source type", func(t *testing.T) {
		ingest := &mockIngestService{}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Ingest: ingest})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{
			SourceType: "url", SourceURL: "https://example.com", Title: "T", Content: "C",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.SourceKindURL, ingest.lastReq.SourceKind)
		assert.Equal(t, "https://example.com", ingest.lastReq.SourceLocation)
	})

	t.Run("unknown source type", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Ingest: &mockIngestService{}})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{SourceType: "pdf", Title: "T", Content: "C"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("disabled without ingest port", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Title: "T", Content: "C"})

		assert.ErrorIs(t, err, domain.ErrNotImplemented)
	})

	t.Run("propagates ingest failure", func(t *testing.T) {
		ingest := &mockIngestService{err: domain.ErrEmbeddingUnavailable}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Ingest: ingest})

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Title: "T", Content: "C"})

		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}
