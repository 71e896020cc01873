// Package tui provides an interactive terminal interface for asking
// questions, searching and browsing ingested documents.
// It is a driving adapter over the same services the CLI and MCP server use.
package tui

import (
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	Search   driving.SearchService
	Answer   driving.AnswerService
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
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
