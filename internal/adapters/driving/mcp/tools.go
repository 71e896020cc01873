package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mitiak/raggy/internal/core/domain"
)

// Default top_k values when the caller omits one.
const (
	defaultSearchTopK = 10
	defaultAnswerTopK = 5
)

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	SourceType string         `json:"source_type,omitempty" jsonschema:"url or md (default md)"`
	SourceURL  string         `json:"source_url,omitempty" jsonschema:"where the content came from"`
	Title      string         `json:"title" jsonschema:"document title (1-512 characters)"`
	Content    string         `json:"content" jsonschema:"document text"`
	Metadata   map[string]any `json:"metadata,omitempty" jsonschema:"metadata used by filters, e.g. product, version, lang, source"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	ContentHash string `json:"content_hash"`
	ChunkCount  int    `json:"chunk_count"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query   string              `json:"query" jsonschema:"the search query"`
	TopK    int                 `json:"top_k,omitempty" jsonschema:"maximum number of results, 1-100 (default 10)"`
	Filters domain.FilterParams `json:"filters,omitempty" jsonschema:"metadata and date constraints"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Query       string              `json:"query" jsonschema:"the question"`
	TopK        int                 `json:"top_k,omitempty" jsonschema:"number of chunks to cite, 1-20 (default 5)"`
	UsedFilters domain.FilterParams `json:"used_filters,omitempty" jsonschema:"metadata and date constraints"`
}

// AnswerOutput is the output schema for the answer tool.
type AnswerOutput struct {
	Answer      string              `json:"answer"`
	Citations   []CitationOutput    `json:"citations"`
	UsedFilters domain.FilterParams `json:"used_filters"`
	Confidence  float64             `json:"confidence"`
	RetrieveMs  float64             `json:"retrieve_ms"`
	GenMs       float64             `json:"gen_ms"`
}

// CitationOutput points back to a source chunk.
type CitationOutput struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Title   string  `json:"title"`
	URL     string  `json:"url,omitempty"`
	Score   float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the document chunks most similar to a query, optionally filtered by metadata and date",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "answer",
		Description: "Answer a question using only ingested documents. Every answer cites its source chunks; " +
			"when nothing relevant is found the answer is \"" + domain.UnknownAnswer + "\"",
	}, s.handleAnswer)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Store a document, chunk and embed it. Re-ingesting identical content from the same source is a no-op",
		}, s.handleIngest)
	}
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if err := s.allow("ingest"); err != nil {
		return nil, IngestOutput{}, err
	}
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, fmt.Errorf("%w: ingestion is disabled", domain.ErrNotImplemented)
	}

	sourceType := input.SourceType
	if sourceType == "" {
		sourceType = string(domain.SourceKindMarkdown)
	}
	kind, err := domain.ParseSourceKind(sourceType)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	doc, err := s.ports.Ingest.Ingest(ctx, domain.IngestRequest{
		SourceKind:     kind,
		SourceLocation: input.SourceURL,
		Title:          input.Title,
		Content:        input.Content,
		Metadata:       input.Metadata,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID:  doc.ID,
		Title:       doc.Title,
		ContentHash: doc.ContentHash,
		ChunkCount:  len(doc.Chunks),
	}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	if err := s.allow("search"); err != nil {
		return nil, SearchOutput{}, err
	}

	topK := input.TopK
	if topK == 0 {
		topK = defaultSearchTopK
	}
	filters, err := input.Filters.ToFilters()
	if err != nil {
		return nil, SearchOutput{}, err
	}

	candidates, err := s.ports.Search.Search(ctx, input.Query, topK, filters)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(candidates)),
		Count:   len(candidates),
	}
	for i := range candidates {
		c := &candidates[i]
		output.Results[i] = SearchResultOutput{
			ChunkID:    c.Chunk.ID,
			DocumentID: c.Document.ID,
			Title:      c.Document.Title,
			URL:        c.Document.SourceLocation,
			Score:      c.Score,
			Content:    c.Chunk.Text,
		}
	}

	return nil, output, nil
}

func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, AnswerOutput, error) {
	if err := s.allow("answer"); err != nil {
		return nil, AnswerOutput{}, err
	}

	topK := input.TopK
	if topK == 0 {
		topK = defaultAnswerTopK
	}
	filters, err := input.UsedFilters.ToFilters()
	if err != nil {
		return nil, AnswerOutput{}, err
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Query, topK, filters)
	if err != nil {
		return nil, AnswerOutput{}, err
	}
	if answer == nil {
		return nil, AnswerOutput{}, errors.New("answer service returned no answer")
	}

	output := AnswerOutput{
		Answer:      answer.Text,
		Citations:   make([]CitationOutput, len(answer.Citations)),
		UsedFilters: domain.FilterParamsFrom(answer.Filters),
		Confidence:  answer.Confidence,
		RetrieveMs:  answer.RetrieveMs,
		GenMs:       answer.GenMs,
	}
	for i, c := range answer.Citations {
		output.Citations[i] = CitationOutput{
			DocID:   c.DocumentID,
			ChunkID: c.ChunkID,
			Title:   c.Title,
			URL:     c.URL,
			Score:   c.Score,
		}
	}

	return nil, output, nil
}
