// Package mcp exposes ingestion, retrieval and grounded answers over the
// Model Context Protocol so AI assistants can query a raggy store.
package mcp

import "errors"

var (
	// ErrMissingSearchService is returned when the search service is not provided.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrMissingAnswerService is returned when the answer service is not provided.
	ErrMissingAnswerService = errors.New("mcp: answer service is required")
)
