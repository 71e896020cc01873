package domain

import (
	"fmt"
	"strings"
)

// UnknownAnswer is the canonical response when nothing relevant was retrieved.
const UnknownAnswer = "I don't know based on the provided documents."

// unknownMarkers identify the "I don't know" family of answers.
var unknownMarkers = []string{
	"i don't know",
	"i do not know",
	"not enough information",
}

// IsUnknownAnswer reports whether text belongs to the "I don't know" family.
func IsUnknownAnswer(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, m := range unknownMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Answer is a grounded response to a query.
// Construct it with NewAnswer or NewUnknownAnswer.
type Answer struct {
	Text       string
	Citations  []Citation
	Confidence float64

	// RetrieveMs and GenMs are wall-clock durations of the two phases
	// in fractional milliseconds.
	RetrieveMs float64
	GenMs      float64

	// Filters are the constraints the answer was computed under.
	Filters SearchFilters
}

// NewAnswer builds an answer, rejecting substantive text without citations.
func NewAnswer(text string, citations []Citation, confidence float64) (*Answer, error) {
	if len(citations) == 0 && !IsUnknownAnswer(text) {
		return nil, fmt.Errorf("%w: %d characters of answer text carry no citation", ErrUngroundedAnswer, len(text))
	}
	if citations == nil {
		citations = []Citation{}
	}
	return &Answer{
		Text:       text,
		Citations:  citations,
		Confidence: confidence,
	}, nil
}

// NewUnknownAnswer returns the canonical "I don't know" answer.
func NewUnknownAnswer() *Answer {
	return &Answer{
		Text:      UnknownAnswer,
		Citations: []Citation{},
	}
}

// IsUnknown reports whether the answer is in the "I don't know" family.
func (a *Answer) IsUnknown() bool {
	return IsUnknownAnswer(a.Text)
}
