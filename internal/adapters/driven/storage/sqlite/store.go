package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mitiak/raggy/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
	"github.com/mitiak/raggy/internal/logger"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "raggy.db"

const metaVectorDimensions = "vector_dimensions"

// Store is a unified SQLite-based storage that provides access to
// all store interfaces through wrapper types.
//
// The vector index is an in-memory mirror of the chunks table. Other
// processes may write the same database, so searches call syncIndex to
// pick up rows they committed.
type Store struct {
	db    *sql.DB
	path  string
	index driven.VectorIndex

	// mu guards the mirror bookkeeping below.
	mu        sync.Mutex
	indexed   map[string]struct{}
	lastState indexState
}

// indexState is a cheap fingerprint of the chunks table.
type indexState struct {
	count      int
	maxRowID   int64
	maxCreated int64
}

// NewStore opens (or creates) the store in dataDir and loads every stored
// embedding into index. If dataDir is empty, defaults to ~/.raggy/data.
func NewStore(dataDir string, index driven.VectorIndex) (*Store, error) {
	if index == nil {
		return nil, fmt.Errorf("%w: vector index is required", domain.ErrInvalidInput)
	}
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".raggy", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// foreign_keys must be set per connection for ON DELETE CASCADE.
	db, err := sql.Open("sqlite", dbPath+
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:    db,
		path:    dbPath,
		index:   index,
		indexed: make(map[string]struct{}),
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := s.checkDimensions(index.Dimensions()); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.syncIndex(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading vector index: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorCount returns the number of vectors held in the index after
// picking up chunks written by other processes.
func (s *Store) VectorCount() int {
	if err := s.syncIndex(context.Background()); err != nil {
		logger.Warn("syncing vector index: %v", err)
	}
	return s.index.Len()
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// IngestJobStore returns an IngestJobStore interface backed by this store.
func (s *Store) IngestJobStore() driven.IngestJobStore {
	return &jobStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback() //nolint:errcheck // already failing
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback() //nolint:errcheck // already failing
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
		logger.Debug("applied migration %s", name)
	}

	return nil
}

// checkDimensions records the vector dimension on first use and rejects
// a provider whose dimension differs from the one already stored.
func (s *Store) checkDimensions(dims int) error {
	var stored string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = ?", metaVectorDimensions).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = s.db.Exec("INSERT INTO store_meta (key, value) VALUES (?, ?)",
			metaVectorDimensions, strconv.Itoa(dims))
		if err != nil {
			return fmt.Errorf("recording vector dimensions: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading vector dimensions: %w", err)
	}

	if stored != strconv.Itoa(dims) {
		return fmt.Errorf("%w: store holds %s-dimensional vectors, embedding provider produces %d",
			domain.ErrDimensionMismatch, stored, dims)
	}
	return nil
}

// syncIndex brings the vector index in line with the chunks table.
// Rows added since the last sync are loaded incrementally. When the table
// shrank or a row ID was reused the whole table is reconciled.
func (s *Store) syncIndex(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var state indexState
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(rowid), 0), COALESCE(MAX(created_at), 0) FROM chunks
	`).Scan(&state.count, &state.maxRowID, &state.maxCreated)
	if err != nil {
		return fmt.Errorf("reading chunk state: %w", err)
	}
	if state == s.lastState && state.count == len(s.indexed) {
		return nil
	}

	seen, err := s.loadChunksLocked(ctx, s.lastState.maxRowID, nil)
	if err != nil {
		return err
	}
	if state.count != len(s.indexed) || (seen == 0 && state != s.lastState) {
		present := make(map[string]struct{}, state.count)
		if _, err := s.loadChunksLocked(ctx, 0, present); err != nil {
			return err
		}
		for id := range s.indexed {
			if _, ok := present[id]; !ok {
				s.index.Delete(id)
				delete(s.indexed, id)
			}
		}
	}

	s.lastState = state
	logger.Debug("vector index synced with %d vectors", s.index.Len())
	return nil
}

// loadChunksLocked indexes chunks with a rowid above afterRowID that are not
// indexed yet. Every scanned ID is recorded in present when it is non-nil.
func (s *Store) loadChunksLocked(ctx context.Context, afterRowID int64, present map[string]struct{}) (int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, embedding FROM chunks WHERE rowid > ?", afterRowID)
	if err != nil {
		return 0, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return seen, fmt.Errorf("scanning embedding: %w", err)
		}
		seen++
		if present != nil {
			present[id] = struct{}{}
		}
		if _, ok := s.indexed[id]; ok {
			continue
		}
		if err := s.index.Add(id, bytesToFloat32Slice(blob)); err != nil {
			return seen, fmt.Errorf("indexing chunk %s: %w", id, err)
		}
		s.indexed[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return seen, fmt.Errorf("iterating embeddings: %w", err)
	}
	return seen, nil
}

// indexChunks adds chunks this process just committed.
func (s *Store) indexChunks(chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range chunks {
		if err := s.index.Add(chunks[i].ID, chunks[i].Embedding); err != nil {
			return fmt.Errorf("index chunk %s: %w", chunks[i].ID, err)
		}
		s.indexed[chunks[i].ID] = struct{}{}
	}
	return nil
}

// unindexChunks drops chunks this process just deleted.
func (s *Store) unindexChunks(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.index.Delete(id)
		delete(s.indexed, id)
	}
}

// ==================== Helper Functions ====================

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
