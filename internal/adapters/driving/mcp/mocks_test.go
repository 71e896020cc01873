package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/core/domain"
)

type mockSearchService struct {
	candidates []domain.Candidate
	err        error

	lastQuery   string
	lastTopK    int
	lastFilters domain.SearchFilters
}

func (m *mockSearchService) Search(_ context.Context, query string, topK int, filters domain.SearchFilters) ([]domain.Candidate, error) {
	m.lastQuery, m.lastTopK, m.lastFilters = query, topK, filters
	if m.err != nil {
		return nil, m.err
	}
	return m.candidates, nil
}

type mockAnswerService struct {
	answer *domain.Answer
	err    error

	lastTopK    int
	lastFilters domain.SearchFilters
}

func (m *mockAnswerService) Answer(_ context.Context, _ string, topK int, filters domain.SearchFilters) (*domain.Answer, error) {
	m.lastTopK, m.lastFilters = topK, filters
	if m.err != nil {
		return nil, m.err
	}
	if m.answer == nil {
		a := domain.NewUnknownAnswer()
		a.Filters = filters
		return a, nil
	}
	return m.answer, nil
}

type mockIngestService struct {
	err     error
	lastReq domain.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req domain.IngestRequest) (*domain.Document, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{
		ID:          "doc-1",
		Title:       req.Title,
		ContentHash: "abc123",
		Chunks:      []domain.Chunk{{ID: "c0"}, {ID: "c1"}},
	}, nil
}

type mockDocumentService struct {
	docs map[string]*domain.Document
	err  error
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) List(_ context.Context, _, _ int) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	docs := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, *d)
	}
	return docs, nil
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error { return m.err }

func (m *mockDocumentService) Stats(_ context.Context) (domain.DocumentStats, error) {
	return domain.DocumentStats{Documents: len(m.docs)}, m.err
}

func (m *mockDocumentService) Jobs(_ context.Context, _ int) ([]domain.IngestJob, error) {
	return nil, m.err
}

func newTestServer(t *testing.T, ports *Ports, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(ports, opts...)
	require.NoError(t, err)
	return s
}
