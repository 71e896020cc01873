package eval

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/adapters/driven/embedding/hash"
	"github.com/mitiak/raggy/internal/adapters/driven/storage/memory"
	"github.com/mitiak/raggy/internal/adapters/driven/vector/ivf"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/services"
	"github.com/mitiak/raggy/internal/postprocessors"
)

// ==================== Mocks ====================

type mockAnswerer struct {
	mu      sync.Mutex
	answers map[string]*domain.Answer
	errs    map[string]error
	topKs   []int
	filters []domain.SearchFilters
}

func (m *mockAnswerer) Answer(_ context.Context, query string, topK int, filters domain.SearchFilters) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topKs = append(m.topKs, topK)
	m.filters = append(m.filters, filters)
	if err := m.errs[query]; err != nil {
		return nil, err
	}
	if a, ok := m.answers[query]; ok {
		return a, nil
	}
	return domain.NewUnknownAnswer(), nil
}

type mockChunks struct {
	texts map[string]string
	err   error
}

func (m *mockChunks) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	text, ok := m.texts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.Chunk{ID: id, Text: text}, nil
}

func cited(text string, citations ...domain.Citation) *domain.Answer {
	return &domain.Answer{Text: text, Citations: citations, Confidence: 0.9}
}

func writeJSONL(t *testing.T, name string, rows ...any) string {
	t.Helper()
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		require.NoError(t, err)
		lines = append(lines, string(data))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n\n")+"\n"), 0o600))
	return path
}

func strPtr(s string) *string { return &s }

// ==================== Tests ====================

func TestRunner_Metrics(t *testing.T) {
	dataset := writeJSONL(t, "golden.jsonl",
		map[string]any{"id": "q1", "query": "What is duck debugging?", "answerable": true,
			"used_filters": map[string]any{"lang": "en"}, "expected_title": "Duck Debugging EN"},
		map[string]any{"id": "q2", "query": "Unknown moon winner?", "answerable": false,
			"used_filters": map[string]any{"lang": "en"}},
		map[string]any{"id": "q3", "query": "Who wrote the style guide?", "answerable": true,
			"expected_substring": "STYLE"},
		map[string]any{"id": "q4", "query": "Hallucinated?", "answerable": true},
	)

	answerer := &mockAnswerer{answers: map[string]*domain.Answer{
		"What is duck debugging?": cited("Rubber duck debugging explains code line by line.",
			domain.Citation{ChunkID: "c1", Title: "Duck Debugging EN"}),
		"Who wrote the style guide?": cited("The docs team.",
			domain.Citation{ChunkID: "c2", Title: "Style Guide"}),
		"Hallucinated?": cited("Something unsupported.",
			domain.Citation{ChunkID: "missing", Title: "Other"}),
	}}
	chunks := &mockChunks{texts: map[string]string{
		"c1": "Rubber   duck debugging explains code\nline by line.",
		"c2": "Written and maintained by the docs team.",
	}}

	report, err := NewRunner(nil, answerer, chunks).Run(context.Background(), Config{DatasetPath: dataset})
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalQuestions)
	assert.Equal(t, 4, report.CompletedQuestions)
	assert.Equal(t, 0, report.FailedQuestions)
	assert.Equal(t, 3, report.AnswerableQuestions)
	assert.Equal(t, 1, report.UnanswerableQuestions)
	assert.Equal(t, 1.0, report.RetrievalHitRate)
	assert.Equal(t, 1.0, report.IDKRateUnanswerable)
	assert.Equal(t, 3, report.CitationChecksTotal)
	assert.Equal(t, 2, report.CitationChecksSupported)
	assert.Equal(t, 0.6667, report.CitationCorrectness)
	assert.Nil(t, report.CitationErrors)
	assert.Empty(t, report.Failures)

	for _, k := range answerer.topKs {
		assert.Equal(t, DefaultTopK, k)
	}
	require.NotNil(t, answerer.filters[0].Language)
	assert.Equal(t, "en", *answerer.filters[0].Language)
}

func TestRunner_Failures(t *testing.T) {
	dataset := writeJSONL(t, "golden.jsonl",
		map[string]any{"id": "ok", "query": "fine", "answerable": false},
		map[string]any{"id": "down", "query": "boom", "answerable": true},
		map[string]any{"id": "bad-filter", "query": "dates", "answerable": true,
			"used_filters": map[string]any{"date_from": "not-a-date"}},
	)
	answerer := &mockAnswerer{errs: map[string]error{"boom": domain.ErrEmbeddingUnavailable}}

	report, err := NewRunner(nil, answerer, &mockChunks{}).Run(context.Background(), Config{DatasetPath: dataset})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalQuestions)
	assert.Equal(t, 1, report.CompletedQuestions)
	assert.Equal(t, 2, report.FailedQuestions)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "down", report.Failures[0].ID)
	assert.Contains(t, report.Failures[0].Error, "embedding")
	assert.Equal(t, "bad-filter", report.Failures[1].ID)
	assert.Equal(t, 0, report.AnswerableQuestions)
	assert.Equal(t, 0.0, report.RetrievalHitRate)
}

func TestRunner_Limit(t *testing.T) {
	dataset := writeJSONL(t, "golden.jsonl",
		map[string]any{"id": "1", "query": "a", "answerable": false},
		map[string]any{"id": "2", "query": "b", "answerable": false},
		map[string]any{"id": "3", "query": "c", "answerable": false},
	)
	answerer := &mockAnswerer{}

	report, err := NewRunner(nil, answerer, &mockChunks{}).Run(context.Background(), Config{DatasetPath: dataset, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalQuestions)
	assert.Len(t, answerer.topKs, 2)
}

func TestRunner_CitationErrors(t *testing.T) {
	dataset := writeJSONL(t, "golden.jsonl",
		map[string]any{"id": "q", "query": "x", "answerable": true},
	)
	answerer := &mockAnswerer{answers: map[string]*domain.Answer{
		"x": cited("text", domain.Citation{ChunkID: "c", Title: "T"}),
	}}

	report, err := NewRunner(nil, answerer, &mockChunks{err: errors.New("disk gone")}).
		Run(context.Background(), Config{DatasetPath: dataset})
	require.NoError(t, err)

	require.NotNil(t, report.CitationErrors)
	assert.Contains(t, *report.CitationErrors, "disk gone")
	assert.Equal(t, 1.0, report.RetrievalHitRate)
}

func TestRunner_Concurrency(t *testing.T) {
	rows := make([]any, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, map[string]any{"id": string(rune('a' + i)), "query": "q", "answerable": false})
	}
	dataset := writeJSONL(t, "golden.jsonl", rows...)
	answerer := &mockAnswerer{errs: map[string]error{"q": errors.New("fail")}}

	report, err := NewRunner(nil, answerer, &mockChunks{}, WithConcurrency(4), WithTopK(3)).
		Run(context.Background(), Config{DatasetPath: dataset})
	require.NoError(t, err)

	require.Len(t, report.Failures, 12)
	for i, f := range report.Failures {
		assert.Equal(t, string(rune('a'+i)), f.ID)
	}
	assert.Equal(t, 3, answerer.topKs[0])
}

func TestRunner_InputErrors(t *testing.T) {
	t.Run("missing dataset", func(t *testing.T) {
		_, err := NewRunner(nil, &mockAnswerer{}, &mockChunks{}).
			Run(context.Background(), Config{DatasetPath: filepath.Join(t.TempDir(), "none.jsonl")})
		assert.Error(t, err)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		dataset := writeJSONL(t, "golden.jsonl", map[string]any{"id": "q", "query": "x", "surprise": 1})
		_, err := NewRunner(nil, &mockAnswerer{}, &mockChunks{}).Run(context.Background(), Config{DatasetPath: dataset})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("fixtures require an ingest service", func(t *testing.T) {
		dataset := writeJSONL(t, "golden.jsonl", map[string]any{"id": "q", "query": "x"})
		fixtures := writeJSONL(t, "docs.jsonl", map[string]any{"title": "t", "content": "c"})
		_, err := NewRunner(nil, &mockAnswerer{}, &mockChunks{}).Run(context.Background(),
			Config{DatasetPath: dataset, FixturePath: fixtures, IngestFixtures: true})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("answer service required", func(t *testing.T) {
		_, err := NewRunner(nil, nil, nil).Run(context.Background(), Config{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRetrievalHit(t *testing.T) {
	answer := cited("Rubber duck", domain.Citation{Title: "Duck Guide"})
	tests := []struct {
		name     string
		question Question
		answer   *domain.Answer
		want     bool
	}{
		{name: "title match", question: Question{ExpectedTitle: strPtr("Duck Guide")}, answer: answer, want: true},
		{name: "title mismatch", question: Question{ExpectedTitle: strPtr("duck guide")}, answer: answer, want: false},
		{name: "substring in answer", question: Question{ExpectedSubstring: strPtr("RUBBER")}, answer: answer, want: true},
		{name: "substring in title", question: Question{ExpectedSubstring: strPtr("guide")}, answer: answer, want: true},
		{name: "substring absent", question: Question{ExpectedSubstring: strPtr("goose")}, answer: answer, want: false},
		{name: "answerable with citations", question: Question{Answerable: true}, answer: answer, want: true},
		{name: "answerable without citations", question: Question{Answerable: true}, answer: domain.NewUnknownAnswer(), want: false},
		{name: "unanswerable", question: Question{}, answer: domain.NewUnknownAnswer(), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retrievalHit(tt.question, tt.answer))
		})
	}
}

func TestFixture_Request(t *testing.T) {
	req, err := Fixture{Title: "T", Content: "C"}.Request()
	require.NoError(t, err)
	assert.Equal(t, domain.SourceKindMarkdown, req.SourceKind)

	req, err = Fixture{SourceType: "url", SourceURL: "https://example.com", Title: "T", Content: "C"}.Request()
	require.NoError(t, err)
	assert.Equal(t, domain.SourceKindURL, req.SourceKind)
	assert.Equal(t, "https://example.com", req.SourceLocation)

	_, err = Fixture{SourceType: "pdf"}.Request()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRunner_EndToEnd(t *testing.T) {
	ctx := context.Background()
	index, err := ivf.New(64)
	require.NoError(t, err)
	store := memory.NewDocumentStore(index)
	embedder := hash.NewEmbeddingService(64)
	pipeline, err := postprocessors.NewDefaultPipeline(domain.DefaultSettings().Chunking)
	require.NoError(t, err)

	ingest := services.NewIngestService(store, pipeline, embedder)
	answer := services.NewAnswerService(services.NewSearchService(store, embedder))

	fixtures := writeJSONL(t, "docs.jsonl",
		Fixture{SourceURL: "https://example.com/duck-en", Title: "Duck Debugging EN",
			Content: "Rubber duck debugging explains code line by line.", Metadata: map[string]any{"lang": "en"}},
		Fixture{SourceType: "url", SourceURL: "https://example.com/garten", Title: "Gartenarbeit",
			Content: "Tomaten brauchen viel Sonne.", Metadata: map[string]any{"lang": "de"}},
		Fixture{Title: "", Content: "invalid, skipped"},
	)
	dataset := writeJSONL(t, "golden.jsonl",
		Question{ID: "q1", Query: "What is duck debugging?", Answerable: true,
			UsedFilters: domain.FilterParams{Lang: "en"}, ExpectedTitle: strPtr("Duck Debugging EN")},
		Question{ID: "q2", Query: "Who won the moon race?", Answerable: false,
			UsedFilters: domain.FilterParams{Lang: "fr"}},
	)

	report, err := NewRunner(ingest, answer, store).Run(ctx, Config{
		DatasetPath:    dataset,
		FixturePath:    fixtures,
		IngestFixtures: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.FixturesIngested)
	assert.Equal(t, 2, report.CompletedQuestions)
	assert.Equal(t, 1.0, report.RetrievalHitRate)
	assert.Equal(t, 1.0, report.CitationCorrectness)
	assert.Equal(t, 1.0, report.IDKRateUnanswerable)
	assert.Equal(t, 1, report.CitationChecksTotal)
}
