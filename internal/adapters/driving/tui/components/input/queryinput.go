// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/messages"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
)

// CharLimit bounds query length.
const CharLimit = 512

// QueryInput is a single-line query box labelled with the current mode.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	mode      messages.Mode
	width     int
}

// NewQueryInput creates a focused query input.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.CharLimit = CharLimit
	ti.Width = 50
	ti.Focus()

	q := &QueryInput{textinput: ti, styles: s, width: 60}
	q.SetMode(messages.ModeAsk)
	return q
}

// Init starts the cursor blinking.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the underlying text input.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the label and the input box.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render(q.label())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, q.styles.Input.Render(q.textinput.View()))
}

func (q *QueryInput) label() string {
	if q.mode == messages.ModeSearch {
		return "Search: "
	}
	return "Ask:    "
}

// Mode returns the current mode.
func (q *QueryInput) Mode() messages.Mode {
	return q.mode
}

// SetMode switches mode and updates the placeholder.
func (q *QueryInput) SetMode(m messages.Mode) {
	q.mode = m
	if m == messages.ModeSearch {
		q.textinput.Placeholder = "Find chunks similar to..."
		return
	}
	q.textinput.Placeholder = "Ask a question about your documents..."
}

// ToggleMode flips between ask and search.
func (q *QueryInput) ToggleMode() {
	if q.mode == messages.ModeAsk {
		q.SetMode(messages.ModeSearch)
		return
	}
	q.SetMode(messages.ModeAsk)
}

// Placeholder returns the current placeholder text.
func (q *QueryInput) Placeholder() string {
	return q.textinput.Placeholder
}

// Value returns the typed query.
func (q *QueryInput) Value() string {
	return q.textinput.Value()
}

// SetValue replaces the typed query.
func (q *QueryInput) SetValue(value string) {
	q.textinput.SetValue(value)
}

// Focus gives the input keyboard focus.
func (q *QueryInput) Focus() tea.Cmd {
	return q.textinput.Focus()
}

// Blur removes keyboard focus.
func (q *QueryInput) Blur() {
	q.textinput.Blur()
}

// Focused reports whether the input has focus.
func (q *QueryInput) Focused() bool {
	return q.textinput.Focused()
}

// Reset clears the input.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
}

// Width returns the current width.
func (q *QueryInput) Width() int {
	return q.width
}

// SetWidth resizes the input, leaving room for the label and border.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	q.textinput.Width = max(width-14, 20)
}
