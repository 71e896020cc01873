package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text and source code.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/x-rst",
		"text/x-go",
		"text/x-python",
		"text/x-shellscript",
		"text/csv",
		"text/yaml",
		"text/toml",
		"application/json",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // fallback
}

// Normalise converts a text file into an ingestion request with the bytes
// kept verbatim. Invalid UTF-8 sequences are replaced.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	metadata := make(map[string]any, len(raw.Metadata)+1)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata["mime_type"] = raw.MIMEType

	title := titleFromMetadataOrURI(raw)
	if r := []rune(title); len(r) > domain.MaxTitleLength {
		title = string(r[:domain.MaxTitleLength])
	}

	return &driven.NormaliseResult{
		Request: domain.IngestRequest{
			SourceKind:     domain.SourceKindMarkdown,
			SourceLocation: raw.URI,
			Title:          title,
			Content:        content,
			Metadata:       metadata,
			FetchedAt:      raw.ModifiedAt,
		},
	}, nil
}

// titleFromMetadataOrURI prefers a connector-supplied title.
func titleFromMetadataOrURI(raw *domain.RawDocument) string {
	if title, ok := raw.Metadata["title"].(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}

	filename := filepath.Base(raw.URI)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.NewReplacer("_", " ", "-", " ").Replace(filename)
	if strings.TrimSpace(filename) == "" || filename == "." {
		return "Untitled"
	}
	return filename
}
