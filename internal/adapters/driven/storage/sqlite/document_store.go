package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Verify interface implementation.
var _ driven.DocumentStore = (*documentStore)(nil)

// documentStore wraps Store to implement DocumentStore.
type documentStore struct {
	store *Store
}

const documentColumns = `d.id, d.source_kind, d.source_location, d.title, d.content,
	d.content_hash, d.metadata, d.fetched_at, d.created_at`

const chunkColumns = `c.id, c.document_id, c.chunk_index, c.text, c.token_count,
	c.metadata, c.embedding, c.content_hash, c.created_at`

// FindDocument looks a document up by its idempotency key.
func (s *documentStore) FindDocument(ctx context.Context, kind domain.SourceKind, location, contentHash string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		WHERE d.source_kind = ? AND COALESCE(d.source_location, '') = ? AND d.content_hash = ?
	`, string(kind), location, contentHash)

	return scanDocument(row)
}

// SaveDocument stores a document and its chunks atomically, then adds
// the chunk embeddings to the vector index.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", domain.ErrInvalidInput)
	}
	dims := s.store.index.Dimensions()
	for i := range doc.Chunks {
		if len(doc.Chunks[i].Embedding) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, store expects %d",
				domain.ErrDimensionMismatch, i, len(doc.Chunks[i].Embedding), dims)
		}
	}

	metadata, err := marshalMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, source_kind, source_location, title, content,
			content_hash, metadata, fetched_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		string(doc.SourceKind),
		nullString(doc.SourceLocation),
		doc.Title,
		doc.Content,
		doc.ContentHash,
		metadata,
		doc.FetchedAt.UnixNano(),
		doc.CreatedAt.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, text, token_count,
			metadata, embedding, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i := range doc.Chunks {
		c := &doc.Chunks[i]
		chunkMeta, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			c.ID,
			doc.ID,
			c.Index,
			c.Text,
			c.TokenCount,
			chunkMeta,
			float32SliceToBytes(c.Embedding),
			c.ContentHash,
			c.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return s.store.indexChunks(doc.Chunks)
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents d WHERE d.id = ?
	`, id)

	return scanDocument(row)
}

// GetChunks retrieves all chunks for a document.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`
		FROM chunks c
		WHERE c.document_id = ?
		ORDER BY c.chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *c)
	}
	return chunks, rows.Err()
}

// GetChunk retrieves a specific chunk by ID.
func (s *documentStore) GetChunk(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks c WHERE c.id = ?
	`, id)

	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

// DeleteDocument removes a document and its chunks.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	ids, err := s.chunkIDs(ctx, id)
	if err != nil {
		return err
	}

	result, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}

	s.store.unindexChunks(ids)
	return nil
}

// ListDocuments returns documents newest first.
func (s *documentStore) ListDocuments(ctx context.Context, limit, offset int) ([]domain.Document, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM documents d
		ORDER BY d.created_at DESC, d.id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// SearchChunks resolves filters in SQL, runs the vector search restricted
// to the surviving chunks and joins the hits back to their documents.
func (s *documentStore) SearchChunks(ctx context.Context, query []float32, k int, filters domain.SearchFilters) ([]driven.ChunkMatch, error) {
	if k <= 0 {
		return []driven.ChunkMatch{}, nil
	}
	if err := s.store.syncIndex(ctx); err != nil {
		return nil, err
	}

	var allow func(string) bool
	if !filters.IsEmpty() {
		allowed, err := s.allowedChunks(ctx, filters)
		if err != nil {
			return nil, err
		}
		if len(allowed) == 0 {
			return []driven.ChunkMatch{}, nil
		}
		allow = func(id string) bool {
			_, ok := allowed[id]
			return ok
		}
	}

	hits, err := s.store.index.Search(query, k, allow)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return []driven.ChunkMatch{}, nil
	}

	placeholders := make([]string, len(hits))
	args := make([]any, len(hits))
	for i, h := range hits {
		placeholders[i] = "?"
		args[i] = h.ChunkID
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, `+documentColumns+`
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.id IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query matched chunks: %w", err)
	}
	defer rows.Close()

	found := make(map[string]driven.ChunkMatch, len(hits))
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		found[m.Chunk.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matched chunks: %w", err)
	}

	// Keep index order; a hit may vanish if its document was deleted concurrently.
	matches := make([]driven.ChunkMatch, 0, len(hits))
	for _, h := range hits {
		m, ok := found[h.ChunkID]
		if !ok {
			continue
		}
		m.Distance = h.Distance
		matches = append(matches, m)
	}
	return matches, nil
}

// Stats returns document, chunk and job counts.
func (s *documentStore) Stats(ctx context.Context) (domain.DocumentStats, error) {
	var stats domain.DocumentStats
	err := s.store.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM ingest_jobs)
	`).Scan(&stats.Documents, &stats.Chunks, &stats.Jobs)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	return stats, nil
}

func (s *documentStore) chunkIDs(ctx context.Context, documentID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan chunk id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// allowedChunks returns the IDs of chunks whose documents pass filters.
// SQL narrows the candidates and SearchFilters.Matches makes the final call.
func (s *documentStore) allowedChunks(ctx context.Context, filters domain.SearchFilters) (map[string]struct{}, error) {
	where, args := filterClause(filters)
	q := `SELECT c.id, d.id, COALESCE(d.source_location, ''), COALESCE(d.metadata, '{}'), d.fetched_at
		FROM chunks c JOIN documents d ON d.id = c.document_id`
	if where != "" {
		q += " WHERE " + where
	}

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query filtered chunks: %w", err)
	}
	defer rows.Close()

	allowed := make(map[string]struct{})
	verdicts := make(map[string]bool)
	for rows.Next() {
		var chunkID, docID, location, metadata string
		var fetchedAt int64
		if err := rows.Scan(&chunkID, &docID, &location, &metadata, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan filtered chunk: %w", err)
		}
		ok, seen := verdicts[docID]
		if !seen {
			meta, err := decodeFilterMetadata(metadata)
			if err != nil {
				return nil, err
			}
			ok = filters.Matches(&domain.Document{
				SourceLocation: location,
				Metadata:       meta,
				FetchedAt:      time.Unix(0, fetchedAt).UTC(),
			})
			verdicts[docID] = ok
		}
		if ok {
			allowed[chunkID] = struct{}{}
		}
	}
	return allowed, rows.Err()
}

// decodeFilterMetadata keeps numbers as their stored JSON text.
func decodeFilterMetadata(s string) (map[string]any, error) {
	m := make(map[string]any)
	if s == "" {
		return m, nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}

// ==================== Scanning ====================

type scanner interface {
	Scan(dest ...any) error
}

type documentRow struct {
	id, kind, title, content, hash, metadata string
	location                                 sql.NullString
	fetchedAt, createdAt                     int64
}

func (r *documentRow) dest() []any {
	return []any{&r.id, &r.kind, &r.location, &r.title, &r.content,
		&r.hash, &r.metadata, &r.fetchedAt, &r.createdAt}
}

func (r *documentRow) document() (*domain.Document, error) {
	meta, err := unmarshalMetadata(r.metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:             r.id,
		SourceKind:     domain.SourceKind(r.kind),
		SourceLocation: r.location.String,
		Title:          r.title,
		Content:        r.content,
		ContentHash:    r.hash,
		Metadata:       meta,
		FetchedAt:      time.Unix(0, r.fetchedAt).UTC(),
		CreatedAt:      time.Unix(0, r.createdAt).UTC(),
	}, nil
}

type chunkRow struct {
	id, docID, text, metadata, hash string
	index, tokens                   int
	embedding                       []byte
	createdAt                       int64
}

func (r *chunkRow) dest() []any {
	return []any{&r.id, &r.docID, &r.index, &r.text, &r.tokens,
		&r.metadata, &r.embedding, &r.hash, &r.createdAt}
}

func (r *chunkRow) chunk() (*domain.Chunk, error) {
	meta, err := unmarshalMetadata(r.metadata)
	if err != nil {
		return nil, err
	}
	return &domain.Chunk{
		ID:          r.id,
		DocumentID:  r.docID,
		Index:       r.index,
		Text:        r.text,
		TokenCount:  r.tokens,
		Metadata:    meta,
		Embedding:   bytesToFloat32Slice(r.embedding),
		ContentHash: r.hash,
		CreatedAt:   time.Unix(0, r.createdAt).UTC(),
	}, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var r documentRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return r.document()
}

func scanChunk(row scanner) (*domain.Chunk, error) {
	var r chunkRow
	if err := row.Scan(r.dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return r.chunk()
}

func scanMatch(row scanner) (driven.ChunkMatch, error) {
	var cr chunkRow
	var dr documentRow
	if err := row.Scan(append(cr.dest(), dr.dest()...)...); err != nil {
		return driven.ChunkMatch{}, fmt.Errorf("scan match: %w", err)
	}
	c, err := cr.chunk()
	if err != nil {
		return driven.ChunkMatch{}, err
	}
	d, err := dr.document()
	if err != nil {
		return driven.ChunkMatch{}, err
	}
	return driven.ChunkMatch{Chunk: *c, Document: *d}, nil
}

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(s string) (map[string]any, error) {
	m := make(map[string]any)
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m, nil
}
