package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/adapters/driven/storage/memory"
	"github.com/mitiak/raggy/internal/adapters/driven/vector/ivf"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

const testDims = 4

func newIndex(t *testing.T, dims int) *ivf.Index {
	t.Helper()
	idx, err := ivf.New(dims)
	require.NoError(t, err)
	return idx
}

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store, dir
}

// newTestDocument builds a document whose chunks point along the given axes.
func newTestDocument(id, location, hash string, meta map[string]any, axes ...int) *domain.Document {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &domain.Document{
		ID:             id,
		SourceKind:     domain.SourceKindMarkdown,
		SourceLocation: location,
		Title:          "Doc " + id,
		Content:        "content of " + id,
		ContentHash:    hash,
		Metadata:       meta,
		FetchedAt:      now,
		CreatedAt:      now,
	}
	for i, axis := range axes {
		emb := make([]float32, testDims)
		emb[axis] = 1
		doc.Chunks = append(doc.Chunks, domain.Chunk{
			ID:          fmt.Sprintf("%s-c%d", id, i),
			DocumentID:  id,
			Index:       i,
			Text:        fmt.Sprintf("chunk %d of %s", i, id),
			TokenCount:  4,
			Metadata:    map[string]any{"chunk_index": i},
			Embedding:   emb,
			ContentHash: fmt.Sprintf("%s-h%d", id, i),
			CreatedAt:   now,
		})
	}
	return doc
}

func axis(i int) []float32 {
	v := make([]float32, testDims)
	v[i] = 1
	return v
}

func TestNewStore_RequiresIndex(t *testing.T) {
	_, err := NewStore(t.TempDir(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewStore_Success(t *testing.T) {
	store, dir := setupTestStore(t)

	assert.Equal(t, filepath.Join(dir, DatabaseFile), store.Path())
	assert.FileExists(t, store.Path())
	assert.Equal(t, 0, store.VectorCount())
	assert.NotNil(t, store.DocumentStore())
	assert.NotNil(t, store.IngestJobStore())
}

func TestNewStore_DirectoryCreation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")

	store, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	defer store.Close()

	assert.DirExists(t, dir)
}

func TestNewStore_MigrationsRecorded(t *testing.T) {
	store, _ := setupTestStore(t)

	var version int
	err := store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	for _, table := range []string{"store_meta", "documents", "chunks", "ingest_jobs"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestNewStore_ForeignKeysEnabled(t *testing.T) {
	store, _ := setupTestStore(t)

	var enabled int
	require.NoError(t, store.db.QueryRow("PRAGMA foreign_keys").Scan(&enabled))
	assert.Equal(t, 1, enabled)
}

func TestNewStore_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(dir, newIndex(t, testDims+1))
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestNewStore_ReloadsIndex(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", nil, 0, 1)))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.VectorCount())

	matches, err := reopened.DocumentStore().SearchChunks(ctx, axis(1), 1, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "d1-c1", matches[0].Chunk.ID)
}

func TestStore_SyncsWritesFromAnotherStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writer, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	defer writer.Close()
	reader, err := NewStore(dir, newIndex(t, testDims))
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, writer.DocumentStore().SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", nil, 0, 1)))

	_, err = reader.DocumentStore().GetDocument(ctx, "d1")
	require.NoError(t, err)

	matches, err := reader.DocumentStore().SearchChunks(ctx, axis(0), 5, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d1-c0", matches[0].Chunk.ID)
	assert.Equal(t, 2, reader.VectorCount())

	// The reader's own writes and the writer's later ones both stay indexed once.
	require.NoError(t, reader.DocumentStore().SaveDocument(ctx, newTestDocument("d2", "b.md", "h2", nil, 2)))
	require.NoError(t, writer.DocumentStore().SaveDocument(ctx, newTestDocument("d3", "c.md", "h3", nil, 3)))
	assert.Equal(t, 4, reader.VectorCount())
	assert.Equal(t, 4, writer.VectorCount())

	require.NoError(t, writer.DocumentStore().DeleteDocument(ctx, "d1"))

	matches, err = reader.DocumentStore().SearchChunks(ctx, axis(0), 5, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, "d1", m.Document.ID)
	}
	assert.Equal(t, 2, reader.VectorCount())
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	doc := newTestDocument("d1", "guide.md", "h1", map[string]any{"product": "raggy", "beta": true}, 0, 1)
	require.NoError(t, docs.SaveDocument(ctx, doc))

	got, err := docs.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, "guide.md", got.SourceLocation)
	assert.Equal(t, domain.SourceKindMarkdown, got.SourceKind)
	assert.Equal(t, "raggy", got.Metadata["product"])
	assert.Equal(t, true, got.Metadata["beta"])
	assert.True(t, doc.FetchedAt.Equal(got.FetchedAt))

	chunks, err := docs.GetChunks(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, 1, chunks[1].Index)
	assert.Equal(t, axis(1), chunks[1].Embedding)

	chunk, err := docs.GetChunk(ctx, "d1-c0")
	require.NoError(t, err)
	assert.Equal(t, "d1", chunk.DocumentID)
	assert.Equal(t, "d1-h0", chunk.ContentHash)

	assert.Equal(t, 2, store.VectorCount())
}

func TestDocumentStore_SaveDocument_NoLocation(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d1", "", "h1", nil, 0)))

	got, err := docs.FindDocument(ctx, domain.SourceKindMarkdown, "", "h1")
	require.NoError(t, err)
	assert.Equal(t, "d1", got.ID)
	assert.Empty(t, got.SourceLocation)
}

func TestDocumentStore_SaveDocument_Duplicate(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d1", "a.md", "same", nil, 0)))

	err := docs.SaveDocument(ctx, newTestDocument("d2", "a.md", "same", nil, 1))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Nothing from the losing write is visible.
	_, err = docs.GetDocument(ctx, "d2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = docs.GetChunk(ctx, "d2-c0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, store.VectorCount())

	// Same content from another location is a distinct document.
	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d3", "b.md", "same", nil, 1)))
}

func TestDocumentStore_SaveDocument_WrongDimensions(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	doc := newTestDocument("d1", "a.md", "h1", nil, 0)
	doc.Chunks[0].Embedding = []float32{1, 0}

	err := store.DocumentStore().SaveDocument(ctx, doc)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = store.DocumentStore().GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_FindDocument_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.DocumentStore().FindDocument(context.Background(), domain.SourceKindURL, "x", "y")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", nil, 0, 1)))
	require.NoError(t, docs.DeleteDocument(ctx, "d1"))

	_, err := docs.GetDocument(ctx, "d1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := docs.GetChunks(ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Equal(t, 0, store.VectorCount())

	assert.ErrorIs(t, docs.DeleteDocument(ctx, "d1"), domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		doc := newTestDocument(fmt.Sprintf("d%d", i), fmt.Sprintf("%d.md", i), fmt.Sprintf("h%d", i), nil, 0)
		doc.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, docs.SaveDocument(ctx, doc))
	}

	all, err := docs.ListDocuments(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "d2", all[0].ID)
	assert.Equal(t, "d0", all[2].ID)

	page, err := docs.ListDocuments(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "d1", page[0].ID)
}

func TestDocumentStore_SearchChunks_Unfiltered(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", nil, 0, 1)))
	require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d2", "b.md", "h2", nil, 2)))

	matches, err := docs.SearchChunks(ctx, axis(2), 2, domain.SearchFilters{})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "d2-c0", matches[0].Chunk.ID)
	assert.Equal(t, "d2", matches[0].Document.ID)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, matches[1].Distance, 1e-6)

	none, err := docs.SearchChunks(ctx, axis(0), 0, domain.SearchFilters{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDocumentStore_SearchChunks_Filters(t *testing.T) {
	store, _ := setupTestStore(t)
	docs := store.DocumentStore()
	ctx := context.Background()

	early := newTestDocument("d1", "https://docs.example.com/a", "h1",
		map[string]any{"product": "raggy", "version": "1.0", "lang": "en", "beta": true, "tier": 2}, 0)
	early.FetchedAt = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	late := newTestDocument("d2", "notes/b.md", "h2",
		map[string]any{"product": "other", "version": "2.0", "source": "wiki"}, 0)
	late.FetchedAt = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, docs.SaveDocument(ctx, early))
	require.NoError(t, docs.SaveDocument(ctx, late))

	str := func(s string) *string { return &s }
	tm := func(s string) *time.Time {
		v, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return &v
	}

	tests := []struct {
		name    string
		filters domain.SearchFilters
		want    []string
	}{
		{"product", domain.SearchFilters{Product: str("raggy")}, []string{"d1"}},
		{"version", domain.SearchFilters{Version: str("2.0")}, []string{"d2"}},
		{"language", domain.SearchFilters{Language: str("en")}, []string{"d1"}},
		{"no match", domain.SearchFilters{Product: str("missing")}, nil},
		{"source metadata", domain.SearchFilters{Source: str("wiki")}, []string{"d2"}},
		{"source location substring", domain.SearchFilters{Source: str("DOCS.example")}, []string{"d1"}},
		{"date from", domain.SearchFilters{DateFrom: tm("2026-02-01T00:00:00Z")}, []string{"d2"}},
		{"date to", domain.SearchFilters{DateTo: tm("2026-01-10T00:00:00Z")}, []string{"d1"}},
		{"boolean extra", domain.SearchFilters{Extra: map[string]string{"beta": "true"}}, []string{"d1"}},
		{"numeric extra", domain.SearchFilters{Extra: map[string]string{"tier": "2"}}, []string{"d1"}},
		{"combined", domain.SearchFilters{Product: str("raggy"), Version: str("2.0")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := docs.SearchChunks(ctx, axis(0), 10, tt.filters)
			require.NoError(t, err)

			var got []string
			for _, m := range matches {
				got = append(got, m.Document.ID)
				assert.True(t, tt.filters.Matches(&m.Document), "store and in-memory filters disagree")
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestDocumentStore_SearchChunks_MetadataScalars(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	meta := map[string]any{
		"ratio":  2.5,
		"big":    1e21,
		"tiny":   0.00001,
		"whole":  3.0,
		"nested": map[string]any{"a": 1},
		"tags":   []any{"x", "y"},
	}
	sqliteDocs := store.DocumentStore()
	memDocs := memory.NewDocumentStore(newIndex(t, testDims))
	for _, docs := range []driven.DocumentStore{sqliteDocs, memDocs} {
		require.NoError(t, docs.SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", meta, 0)))
	}

	tests := []struct {
		key, want string
		match     bool
	}{
		{"ratio", "2.5", true},
		{"ratio", "2.50", false},
		{"big", "1e+21", true},
		{"big", "1.0e+21", false},
		{"tiny", "0.00001", true},
		{"tiny", "1e-05", false},
		{"whole", "3", true},
		{"whole", "3.0", false},
		{"nested", `{"a":1}`, false},
		{"nested", "map[a:1]", false},
		{"tags", `["x","y"]`, false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.want, func(t *testing.T) {
			filters := domain.SearchFilters{Extra: map[string]string{tt.key: tt.want}}
			for name, docs := range map[string]driven.DocumentStore{"sqlite": sqliteDocs, "memory": memDocs} {
				matches, err := docs.SearchChunks(ctx, axis(0), 5, filters)
				require.NoError(t, err)
				if tt.match {
					assert.Len(t, matches, 1, name)
				} else {
					assert.Empty(t, matches, name)
				}
			}
		})
	}
}

func TestDocumentStore_Stats(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DocumentStore().SaveDocument(ctx, newTestDocument("d1", "a.md", "h1", nil, 0, 1, 2)))
	require.NoError(t, store.IngestJobStore().SaveJob(ctx, &domain.IngestJob{
		ID: "j1", SourceKind: domain.SourceKindMarkdown, Source: "/docs",
		Status: domain.JobStatusPending, CreatedAt: time.Now(),
	}))

	stats, err := store.DocumentStore().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStats{Documents: 1, Chunks: 3, Jobs: 1}, stats)
}

func TestJobStore_SaveAndUpdate(t *testing.T) {
	store, _ := setupTestStore(t)
	jobs := store.IngestJobStore()
	ctx := context.Background()

	created := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	job := &domain.IngestJob{
		ID:         "j1",
		SourceKind: domain.SourceKindMarkdown,
		Source:     "/docs",
		Status:     domain.JobStatusPending,
		CreatedAt:  created,
	}
	require.NoError(t, jobs.SaveJob(ctx, job))

	job.Start(created.Add(time.Second))
	job.DocsProcessed = 3
	job.ChunksCreated = 12
	job.Finish(created.Add(2*time.Second), fmt.Errorf("disk full"))
	require.NoError(t, jobs.SaveJob(ctx, job))

	got, err := jobs.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailure, got.Status)
	assert.Equal(t, 3, got.DocsProcessed)
	assert.Equal(t, 12, got.ChunksCreated)
	assert.Equal(t, "disk full", got.ErrorMessage)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestJobStore_GetJob_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.IngestJobStore().GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStore_ListJobs(t *testing.T) {
	store, _ := setupTestStore(t)
	jobs := store.IngestJobStore()
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, jobs.SaveJob(ctx, &domain.IngestJob{
			ID: fmt.Sprintf("j%d", i), SourceKind: domain.SourceKindMarkdown,
			Source: "/docs", Status: domain.JobStatusSuccess,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := jobs.ListJobs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "j2", list[0].ID)
	assert.Equal(t, "j1", list[1].ID)
}

func TestFloat32Blob_RoundTrip(t *testing.T) {
	in := []float32{0.5, -1.25, 3}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
