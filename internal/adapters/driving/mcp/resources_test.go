package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitiak/raggy/internal/core/domain"
)

func TestExtractDocumentID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid URI", uri: "raggy://documents/doc-123", expected: "doc-123"},
		{name: "uuid", uri: "raggy://documents/2b1c7a8e-0d4f-4c39-9b6e-1f2a3b4c5d6e", expected: "2b1c7a8e-0d4f-4c39-9b6e-1f2a3b4c5d6e"},
		{name: "wrong scheme", uri: "other://documents/doc-123", expected: ""},
		{name: "nested path", uri: "raggy://documents/doc-123/chunks", expected: ""},
		{name: "listing URI", uri: "raggy://documents", expected: ""},
		{name: "empty", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDocumentID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func testDocuments() *mockDocumentService {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &mockDocumentService{docs: map[string]*domain.Document{
		"doc-1": {
			ID:             "doc-1",
			SourceKind:     domain.SourceKindURL,
			SourceLocation: "https://example.com/guide",
			Title:          "Guide",
			Content:        "alpha beta",
			ContentHash:    "hash",
			Metadata:       map[string]any{"lang": "en"},
			FetchedAt:      created,
			CreatedAt:      created,
			Chunks:         []domain.Chunk{{ID: "c0", Index: 0, TokenCount: 2, Text: "alpha beta"}},
		},
	}}
}

func TestServer_handleDocumentResource(t *testing.T) {
	ctx := context.Background()
	ports := &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Document: testDocuments()}
	server := newTestServer(t, ports)

	t.Run("returns document with chunks", func(t *testing.T) {
		result, err := server.handleDocumentResource(ctx, makeReadResourceRequest("raggy://documents/doc-1"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var out DocumentOutput
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &out))
		assert.Equal(t, "doc-1", out.ID)
		assert.Equal(t, "url", out.SourceType)
		assert.Equal(t, "alpha beta", out.Content)
		require.Len(t, out.Chunks, 1)
		assert.Equal(t, "c0", out.Chunks[0].ID)
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("raggy://documents/nope"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("malformed URI is not found", func(t *testing.T) {
		_, err := server.handleDocumentResource(ctx, makeReadResourceRequest("raggy://other/doc-1"))
		assert.Error(t, err)
	})

	t.Run("service failure is wrapped", func(t *testing.T) {
		failing := newTestServer(t, &Ports{
			Search: &mockSearchService{}, Answer: &mockAnswerService{},
			Document: &mockDocumentService{err: errors.New("db down")},
		})
		_, err := failing.handleDocumentResource(ctx, makeReadResourceRequest("raggy://documents/doc-1"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &Ports{Search: &mockSearchService{}, Answer: &mockAnswerService{}, Document: testDocuments()})

	result, err := server.handleDocumentsResource(ctx, makeReadResourceRequest("raggy://documents"))
	require.NoError(t, err)

	var out []DocumentOutput
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Guide", out[0].Title)
	assert.Empty(t, out[0].Content)
	assert.Empty(t, out[0].Chunks)
}
