package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/adapters/driven/embedding/hash"
	"github.com/mitiak/raggy/internal/adapters/driven/storage/memory"
	"github.com/mitiak/raggy/internal/adapters/driven/vector/ivf"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/postprocessors"
)

const testDims = 32

var testNow = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

// --- Mock implementations ---

// countingEmbedder wraps an embedding service, counting calls and
// optionally failing or returning vectors of the wrong size.
type countingEmbedder struct {
	driven.EmbeddingService
	batchCalls atomic.Int32
	embedCalls atomic.Int32
	err        error
	shortBy    int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.embedCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	v, err := e.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return v[:len(v)-e.shortBy], nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batchCalls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	vs, err := e.EmbeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i] = vs[i][:len(vs[i])-e.shortBy]
	}
	return vs, nil
}

// fixedStore is a DocumentStore whose search returns canned matches.
type fixedStore struct {
	driven.DocumentStore
	matches   []driven.ChunkMatch
	searchErr error
	lastK     int
	delay     time.Duration
}

func (s *fixedStore) SearchChunks(_ context.Context, _ []float32, k int, _ domain.SearchFilters) ([]driven.ChunkMatch, error) {
	s.lastK = k
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if k < len(s.matches) {
		return s.matches[:k], nil
	}
	return s.matches, nil
}

// match builds a canned search result with the given similarity score.
func match(i int, score float64) driven.ChunkMatch {
	docID := fmt.Sprintf("doc-%02d", i)
	return driven.ChunkMatch{
		Chunk: domain.Chunk{
			ID:         fmt.Sprintf("chunk-%02d", i),
			DocumentID: docID,
			Text:       fmt.Sprintf("passage number %d", i),
		},
		Document: domain.Document{
			ID:             docID,
			Title:          fmt.Sprintf("Doc %d", i),
			SourceLocation: fmt.Sprintf("https://docs.example.com/%d", i),
		},
		Distance: 1 - score,
	}
}

// racingStore simulates losing the insert race: the first lookup misses,
// and the save collides with a document a concurrent caller stored.
type racingStore struct {
	*memory.DocumentStore
	mu     sync.Mutex
	misses int
}

func (s *racingStore) FindDocument(ctx context.Context, kind domain.SourceKind, location, hash string) (*domain.Document, error) {
	s.mu.Lock()
	if s.misses > 0 {
		s.misses--
		s.mu.Unlock()
		return nil, domain.ErrNotFound
	}
	s.mu.Unlock()
	return s.DocumentStore.FindDocument(ctx, kind, location, hash)
}

// mockJobStore records every saved job state.
type mockJobStore struct {
	mu      sync.Mutex
	history []domain.IngestJob
	jobs    map[string]domain.IngestJob
}

func newMockJobStore() *mockJobStore {
	return &mockJobStore{jobs: make(map[string]domain.IngestJob)}
}

func (m *mockJobStore) SaveJob(_ context.Context, job *domain.IngestJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, *job)
	m.jobs[job.ID] = *job
	return nil
}

func (m *mockJobStore) GetJob(_ context.Context, id string) (*domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *mockJobStore) ListJobs(_ context.Context, _ int) ([]domain.IngestJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.IngestJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

// --- Harness ---

type harness struct {
	store    *memory.DocumentStore
	jobs     *memory.IngestJobStore
	embedder *countingEmbedder
	ingest   *IngestService
	search   *SearchService
	answer   *AnswerService
}

func newIndex(t *testing.T) *ivf.Index {
	t.Helper()
	idx, err := ivf.New(testDims)
	require.NoError(t, err)
	return idx
}

func newPipeline(t *testing.T, window int) driven.PostProcessorPipeline {
	t.Helper()
	p, err := postprocessors.NewDefaultPipeline(domain.ChunkingSettings{
		WindowTokens: window,
		OverlapRatio: domain.DefaultOverlapRatio,
	})
	require.NoError(t, err)
	return p
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewDocumentStore(newIndex(t))
	jobs := memory.NewIngestJobStore()
	store.CountJobsFrom(jobs)
	embedder := &countingEmbedder{EmbeddingService: hash.NewEmbeddingService(testDims)}

	search := NewSearchService(store, embedder)
	return &harness{
		store:    store,
		jobs:     jobs,
		embedder: embedder,
		ingest: NewIngestService(store, newPipeline(t, domain.DefaultWindowTokens), embedder,
			WithClock(func() time.Time { return testNow })),
		search: search,
		answer: NewAnswerService(search),
	}
}

func markdownRequest(location, content string) domain.IngestRequest {
	return domain.IngestRequest{
		SourceKind:     domain.SourceKindMarkdown,
		SourceLocation: location,
		Title:          "Notes",
		Content:        content,
	}
}
