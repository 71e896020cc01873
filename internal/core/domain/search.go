package domain

import (
	"fmt"
	"strings"
	"time"
)

// Well-known metadata keys consulted by SearchFilters.
const (
	MetaProduct  = "product"
	MetaVersion  = "version"
	MetaLanguage = "lang"
	MetaSource   = "source"
)

// Retrieval limits.
const (
	MinTopK       = 1
	MaxSearchTopK = 100
	MaxAnswerTopK = 20
)

// SearchFilters restricts retrieval. All supplied predicates must hold;
// nil fields impose no constraint.
type SearchFilters struct {
	Product  *string
	Version  *string
	Language *string

	// Source matches metadata["source"] exactly, or the document's source
	// location by case-insensitive substring.
	Source *string

	// DateFrom and DateTo bound FetchedAt inclusively.
	DateFrom *time.Time
	DateTo   *time.Time

	// Extra holds ad hoc metadata equality constraints.
	Extra map[string]string
}

// IsEmpty reports whether no predicate is set.
func (f SearchFilters) IsEmpty() bool {
	return f.Product == nil && f.Version == nil && f.Language == nil &&
		f.Source == nil && f.DateFrom == nil && f.DateTo == nil && len(f.Extra) == 0
}

// Validate rejects malformed filter values.
func (f SearchFilters) Validate() error {
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return fmt.Errorf("%w: date_from is after date_to", ErrInvalidInput)
	}
	for k := range f.Extra {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: empty metadata filter key", ErrInvalidInput)
		}
		if strings.ContainsAny(k, `"\`) {
			return fmt.Errorf("%w: metadata filter key %q contains a quote", ErrInvalidInput, k)
		}
	}
	return nil
}

// Matches evaluates the filters against a document in memory.
// Metadata equality compares the MetadataString rendering, so only scalar
// values can match. Stores that push filters down use this as the final check.
func (f SearchFilters) Matches(doc *Document) bool {
	if doc == nil {
		return false
	}
	if !metaEquals(doc, MetaProduct, f.Product) ||
		!metaEquals(doc, MetaVersion, f.Version) ||
		!metaEquals(doc, MetaLanguage, f.Language) {
		return false
	}
	if f.Source != nil {
		v, ok := doc.MetadataString(MetaSource)
		byMeta := ok && v == *f.Source
		byLocation := strings.Contains(strings.ToLower(doc.SourceLocation), strings.ToLower(*f.Source))
		if !byMeta && !byLocation {
			return false
		}
	}
	if f.DateFrom != nil && doc.FetchedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && doc.FetchedAt.After(*f.DateTo) {
		return false
	}
	for k, want := range f.Extra {
		got, ok := doc.MetadataString(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

func metaEquals(doc *Document, key string, want *string) bool {
	if want == nil {
		return true
	}
	got, ok := doc.MetadataString(key)
	return ok && got == *want
}

// Candidate is a retrieved chunk joined to its owning document.
type Candidate struct {
	Chunk    Chunk
	Document Document

	// Score is the cosine similarity clamped to [0,1].
	Score float64
}

// Citation points from an answer back to its source chunk.
type Citation struct {
	DocumentID string
	ChunkID    string
	Title      string
	URL        string
	Score      float64
}

// CitationFor builds the citation for a candidate.
func CitationFor(c Candidate) Citation {
	return Citation{
		DocumentID: c.Document.ID,
		ChunkID:    c.Chunk.ID,
		Title:      c.Document.Title,
		URL:        c.Document.SourceLocation,
		Score:      c.Score,
	}
}

// ClampScore converts a cosine distance into a similarity in [0,1].
func ClampScore(distance float64) float64 {
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
