// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/mitiak/raggy/internal/core/domain"
)

// ViewType identifies which view is active.
type ViewType int

const (
	ViewMenu ViewType = iota
	ViewQuery
	ViewDocuments
	ViewDocument
	ViewHelp
)

// String returns the view name.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewQuery:
		return "query"
	case ViewDocuments:
		return "documents"
	case ViewDocument:
		return "document"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// Mode selects what the query view does with its input.
type Mode int

const (
	ModeAsk Mode = iota
	ModeSearch
)

// String returns the mode label.
func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "ask"
}

// ViewChanged navigates to another view.
type ViewChanged struct {
	View ViewType

	// Mode applies when View is ViewQuery.
	Mode Mode

	// Resume switches back without resetting the target view.
	Resume bool
}

// SearchCompleted carries search candidates back to the query view.
type SearchCompleted struct {
	Query      string
	Candidates []domain.Candidate
	Err        error
}

// AnswerCompleted carries an answer back to the query view.
type AnswerCompleted struct {
	Query  string
	Answer *domain.Answer
	Err    error
}

// DocumentRequested asks the app to open a document.
type DocumentRequested struct {
	DocumentID string

	// ReturnTo is the view esc goes back to.
	ReturnTo ViewType
}

// DocumentLoaded carries a document with its chunks.
type DocumentLoaded struct {
	Document *domain.Document
	Err      error
}

// DocumentsLoaded carries one page of documents.
type DocumentsLoaded struct {
	Documents []domain.Document
	Offset    int
	Err       error
}

// DocumentDeleted reports the outcome of a delete.
type DocumentDeleted struct {
	DocumentID string
	Err        error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
