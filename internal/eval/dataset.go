package eval

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitiak/raggy/internal/core/domain"
)

// Question is one line of an evaluation dataset.
type Question struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	Answerable  bool                `json:"answerable"`
	UsedFilters domain.FilterParams `json:"used_filters"`

	// ExpectedTitle, when set, must match a citation title exactly.
	ExpectedTitle *string `json:"expected_title,omitempty"`

	// ExpectedSubstring, when set, must appear in the answer or a citation title.
	ExpectedSubstring *string `json:"expected_substring,omitempty"`
}

// Fixture is one document to ingest before questions are asked.
type Fixture struct {
	SourceType string         `json:"source_type"`
	SourceURL  string         `json:"source_url,omitempty"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Request converts the fixture into an ingestion request.
// An empty source type means markdown.
func (f Fixture) Request() (domain.IngestRequest, error) {
	sourceType := f.SourceType
	if sourceType == "" {
		sourceType = "md"
	}
	kind, err := domain.ParseSourceKind(sourceType)
	if err != nil {
		return domain.IngestRequest{}, err
	}
	return domain.IngestRequest{
		SourceKind:     kind,
		SourceLocation: f.SourceURL,
		Title:          f.Title,
		Content:        f.Content,
		Metadata:       f.Metadata,
	}, nil
}

// LoadQuestions reads a JSONL question file.
func LoadQuestions(path string) ([]Question, error) {
	return loadFile[Question](path)
}

// LoadFixtures reads a JSONL fixture file.
func LoadFixtures(path string) ([]Fixture, error) {
	return loadFile[Fixture](path)
}

func loadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := decodeJSONL[T](f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// decodeJSONL decodes one value per non-blank line. Unknown fields are rejected.
func decodeJSONL[T any](r io.Reader) ([]T, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)

	var rows []T
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader([]byte(text)))
		dec.DisallowUnknownFields()
		var row T
		if err := dec.Decode(&row); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, line, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return rows, nil
}
