package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Filters are evaluated with SearchFilters.Matches.
type DocumentStore struct {
	mu        sync.RWMutex
	index     driven.VectorIndex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	chunkDoc  map[string]string
	keys      map[string]string
	jobs      func() int
}

// NewDocumentStore creates a document store over the given vector index.
func NewDocumentStore(index driven.VectorIndex) *DocumentStore {
	return &DocumentStore{
		index:     index,
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		chunkDoc:  make(map[string]string),
		keys:      make(map[string]string),
	}
}

// CountJobsFrom makes Stats report the job count of jobs.
func (s *DocumentStore) CountJobsFrom(jobs *IngestJobStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = jobs.count
}

func idempotencyKey(kind domain.SourceKind, location, hash string) string {
	return string(kind) + "\x1f" + location + "\x1f" + hash
}

// FindDocument looks a document up by its idempotency key.
func (s *DocumentStore) FindDocument(ctx context.Context, kind domain.SourceKind, location, contentHash string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.keys[idempotencyKey(kind, location, contentHash)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc := s.documents[id]
	return &doc, nil
}

// SaveDocument stores a document and its chunks.
func (s *DocumentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	for i := range doc.Chunks {
		if len(doc.Chunks[i].Embedding) != s.index.Dimensions() {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, i, len(doc.Chunks[i].Embedding), s.index.Dimensions())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := idempotencyKey(doc.SourceKind, doc.SourceLocation, doc.ContentHash)
	if _, taken := s.keys[key]; taken {
		return domain.ErrAlreadyExists
	}
	if _, taken := s.documents[doc.ID]; taken {
		return domain.ErrAlreadyExists
	}

	stored := *doc
	stored.Chunks = nil
	chunks := make([]domain.Chunk, len(doc.Chunks))
	copy(chunks, doc.Chunks)

	for i := range chunks {
		if err := s.index.Add(chunks[i].ID, chunks[i].Embedding); err != nil {
			for _, added := range chunks[:i] {
				s.index.Delete(added.ID)
			}
			return fmt.Errorf("index chunk %s: %w", chunks[i].ID, err)
		}
	}

	s.documents[doc.ID] = stored
	s.chunks[doc.ID] = chunks
	s.keys[key] = doc.ID
	for _, c := range chunks {
		s.chunkDoc[c.ID] = doc.ID
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks retrieves all chunks for a document.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.chunks[documentID]
	out := make([]domain.Chunk, len(chunks))
	copy(out, chunks)
	return out, nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *DocumentStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunkLocked(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *DocumentStore) chunkLocked(id string) (domain.Chunk, bool) {
	docID, ok := s.chunkDoc[id]
	if !ok {
		return domain.Chunk{}, false
	}
	for _, c := range s.chunks[docID] {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Chunk{}, false
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, c := range s.chunks[id] {
		s.index.Delete(c.ID)
		delete(s.chunkDoc, c.ID)
	}
	delete(s.chunks, id)
	delete(s.documents, id)
	delete(s.keys, idempotencyKey(doc.SourceKind, doc.SourceLocation, doc.ContentHash))
	return nil
}

// ListDocuments returns documents newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, limit, offset int) ([]domain.Document, error) {
	s.mu.RLock()
	docs := make([]domain.Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	s.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []domain.Document{}, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

// SearchChunks runs the vector search restricted to chunks whose
// document satisfies filters.
func (s *DocumentStore) SearchChunks(ctx context.Context, query []float32, k int, filters domain.SearchFilters) ([]driven.ChunkMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []driven.ChunkMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var allow func(string) bool
	if !filters.IsEmpty() {
		allow = func(chunkID string) bool {
			doc, ok := s.documents[s.chunkDoc[chunkID]]
			return ok && filters.Matches(&doc)
		}
	}

	hits, err := s.index.Search(query, k, allow)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	matches := make([]driven.ChunkMatch, 0, len(hits))
	for _, h := range hits {
		c, ok := s.chunkLocked(h.ChunkID)
		if !ok {
			continue
		}
		matches = append(matches, driven.ChunkMatch{
			Chunk:    c,
			Document: s.documents[c.DocumentID],
			Distance: h.Distance,
		})
	}
	return matches, nil
}

// Stats returns document, chunk and job counts.
func (s *DocumentStore) Stats(_ context.Context) (domain.DocumentStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DocumentStats{
		Documents: len(s.documents),
		Chunks:    len(s.chunkDoc),
	}
	if s.jobs != nil {
		stats.Jobs = s.jobs()
	}
	return stats, nil
}
