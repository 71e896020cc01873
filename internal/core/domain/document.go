package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceKind identifies where a document's content came from.
type SourceKind string

// Supported source kinds.
const (
	SourceKindURL      SourceKind = "url"
	SourceKindMarkdown SourceKind = "markdown"
)

// Field limits enforced on ingestion.
const (
	MaxTitleLength          = 512
	MaxSourceLocationLength = 2048
)

// ParseSourceKind converts user input into a SourceKind.
// "md" is accepted as an alias for markdown.
func ParseSourceKind(s string) (SourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "url":
		return SourceKindURL, nil
	case "markdown", "md":
		return SourceKindMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown source kind %q", ErrInvalidInput, s)
	}
}

// IsValid returns true if the kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceKindURL || k == SourceKindMarkdown
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// Document represents an ingested unit of content.
// A document is immutable once created; it is only ever deleted.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// SourceKind records how the content was obtained.
	SourceKind SourceKind

	// SourceLocation is the optional origin (URL or file path).
	SourceLocation string

	// Title is the human-readable title.
	Title string

	// Content is the original text as submitted.
	Content string

	// ContentHash is the hex digest of Content, used for deduplication.
	ContentHash string

	// Metadata contains arbitrary key-value pairs used by filters.
	Metadata map[string]any

	// FetchedAt is when the content was fetched; date filters compare against it.
	FetchedAt time.Time

	// CreatedAt is when the document was stored.
	CreatedAt time.Time

	// Chunks holds the document's chunks when they were loaded alongside it.
	Chunks []Chunk
}

// MetadataString returns the scalar metadata value for key rendered as a
// string. Numbers render as their JSON text, so a value reads the same
// before and after a JSON round trip. The second return is false when the
// key is absent or holds null, an object or an array.
func (d *Document) MetadataString(key string) (string, bool) {
	if d.Metadata == nil {
		return "", false
	}
	switch v := d.Metadata[key].(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case json.Number:
		return v.String(), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	default:
		return "", false
	}
}

// Chunk is a contiguous window of a document's normalised text.
type Chunk struct {
	// ID is derived deterministically from document id, index and text.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Text is the chunk content.
	Text string

	// TokenCount is the number of whitespace-delimited tokens in Text.
	TokenCount int

	// Metadata carries at least source_kind and chunk_index.
	Metadata map[string]any

	// Embedding is the vector representation of Text.
	Embedding []float32

	// ContentHash is the hex digest of Text.
	ContentHash string

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time
}

// IngestRequest is the input to the ingestion pipeline.
type IngestRequest struct {
	SourceKind     SourceKind
	SourceLocation string
	Title          string
	Content        string
	Metadata       map[string]any

	// FetchedAt defaults to the ingestion time when zero.
	FetchedAt time.Time
}

// Validate checks the request against ingestion limits.
func (r IngestRequest) Validate() error {
	if !r.SourceKind.IsValid() {
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalidInput, r.SourceKind)
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(r.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxTitleLength)
	}
	if r.Content == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if len(r.SourceLocation) > MaxSourceLocationLength {
		return fmt.Errorf("%w: source location exceeds %d characters", ErrInvalidInput, MaxSourceLocationLength)
	}
	return nil
}

// DocumentStats summarises what is stored.
type DocumentStats struct {
	Documents int
	Chunks    int
	Jobs      int
}
