package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mitiak/raggy/internal/core/domain"
)

const (
	uriScheme = "raggy://"

	// recentDocumentsLimit caps the documents resource listing.
	recentDocumentsLimit = 100
)

// DocumentOutput is the JSON view of a stored document.
type DocumentOutput struct {
	ID          string         `json:"id"`
	SourceType  string         `json:"source_type"`
	SourceURL   string         `json:"source_url,omitempty"`
	Title       string         `json:"title"`
	ContentHash string         `json:"content_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	FetchedAt   time.Time      `json:"fetched_at"`
	CreatedAt   time.Time      `json:"created_at"`
	Content     string         `json:"content,omitempty"`
	Chunks      []ChunkOutput  `json:"chunks,omitempty"`
}

// ChunkOutput is the JSON view of a chunk.
type ChunkOutput struct {
	ID         string `json:"id"`
	Index      int    `json:"chunk_index"`
	TokenCount int    `json:"token_count"`
	Text       string `json:"text"`
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Document == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Most recently ingested documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document",
		Description: "A document with its content and chunks",
		MIMEType:    "application/json",
	}, s.handleDocumentResource)
}

// handleDocumentsResource lists recent documents without content.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Document.List(ctx, recentDocumentsLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]DocumentOutput, len(docs))
	for i := range docs {
		infos[i] = documentOutput(&docs[i], false)
	}
	return jsonResource(req.Params.URI, infos)
}

// handleDocumentResource returns a single document with its chunks.
func (s *Server) handleDocumentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.ports.Document.Get(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}

	return jsonResource(req.Params.URI, documentOutput(doc, true))
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

func documentOutput(doc *domain.Document, full bool) DocumentOutput {
	out := DocumentOutput{
		ID:          doc.ID,
		SourceType:  doc.SourceKind.String(),
		SourceURL:   doc.SourceLocation,
		Title:       doc.Title,
		ContentHash: doc.ContentHash,
		Metadata:    doc.Metadata,
		FetchedAt:   doc.FetchedAt,
		CreatedAt:   doc.CreatedAt,
	}
	if !full {
		return out
	}
	out.Content = doc.Content
	out.Chunks = make([]ChunkOutput, len(doc.Chunks))
	for i, c := range doc.Chunks {
		out.Chunks[i] = ChunkOutput{ID: c.ID, Index: c.Index, TokenCount: c.TokenCount, Text: c.Text}
	}
	return out
}

// extractDocumentID extracts the document ID from a URI like raggy://documents/{documentId}.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
