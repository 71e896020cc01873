package mcp

import (
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the MCP server.
type Ports struct {
	// Search and Answer back the retrieval tools.
	Search driving.SearchService
	Answer driving.AnswerService

	// Ingest enables the ingest tool when set.
	Ingest driving.IngestService

	// Document enables the document resources when set.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
