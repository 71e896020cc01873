// Package query provides the ask and search view for the TUI.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/components/input"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/components/list"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/components/status"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/keymap"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/messages"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// Result counts requested by the view.
const (
	AskTopK    = 5
	SearchTopK = 10
)

// ErrServiceUnavailable is reported when the service for the current mode is missing.
var ErrServiceUnavailable = errors.New("service not available")

// View runs ask or search queries and shows their results.
type View struct {
	ctx     context.Context
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	search  driving.SearchService
	answers driving.AnswerService

	input   *input.QueryInput
	results *list.ResultList
	status  *status.Bar

	query   string
	answer  *domain.Answer
	running bool
	err     error

	width  int
	height int
}

// NewView creates a query view. Either service may be nil; the matching
// mode then reports ErrServiceUnavailable.
func NewView(s *styles.Styles, search driving.SearchService, answers driving.AnswerService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()

	return &View{
		ctx:     context.Background(),
		styles:  s,
		keymap:  km,
		search:  search,
		answers: answers,
		input:   input.NewQueryInput(s),
		results: list.NewResultList(s),
		status:  status.NewBar(s, km),
		width:   80,
		height:  24,
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init starts the cursor blinking.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Reset clears previous results and focuses the input in the given mode.
func (v *View) Reset(mode messages.Mode) tea.Cmd {
	v.query = ""
	v.answer = nil
	v.running = false
	v.err = nil
	v.results.SetItems(nil)
	v.status.Clear()
	v.input.Reset()
	v.input.SetMode(mode)
	return v.input.Focus()
}

// Update handles keys and query results.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.input.Focused() {
			return v.handleInputKey(msg)
		}
		return v.handleResultsKey(msg)

	case messages.SearchCompleted:
		v.running = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.answer = nil
		v.results.SetHeader("Results")
		v.results.SetItems(list.FromCandidates(msg.Candidates))
		v.status.SetResults(len(msg.Candidates), "")
		v.input.Blur()
		return v, nil

	case messages.AnswerCompleted:
		v.running = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.answer = msg.Answer
		v.results.SetHeader("Sources")
		v.results.SetItems(list.FromCitations(msg.Answer.Citations))
		v.status.SetResults(len(msg.Answer.Citations),
			fmt.Sprintf("Retrieved in %.1fms, answered in %.1fms", msg.Answer.RetrieveMs, msg.Answer.GenMs))
		v.input.Blur()
		return v, nil

	case messages.ErrorOccurred:
		v.running = false
		v.setError(msg.Err)
		return v, nil
	}

	var cmd tea.Cmd
	if v.input.Focused() {
		v.input, cmd = v.input.Update(msg)
	}
	return v, cmd
}

func (v *View) handleInputKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Back):
		return v, changeView(messages.ViewMenu)
	case keymap.Matches(msg.String(), v.keymap.Mode):
		v.input.ToggleMode()
		return v, nil
	case keymap.Matches(msg.String(), v.keymap.Submit):
		return v, v.submit()
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleResultsKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Back):
		return v, changeView(messages.ViewMenu)
	case keymap.Matches(msg.String(), v.keymap.NewQuery):
		return v, v.Reset(v.input.Mode())
	case keymap.Matches(msg.String(), v.keymap.Mode):
		return v, v.Reset(otherMode(v.input.Mode()))
	case keymap.Matches(msg.String(), v.keymap.Open):
		item := v.results.SelectedItem()
		if item == nil {
			return v, nil
		}
		id := item.DocumentID
		return v, func() tea.Msg {
			return messages.DocumentRequested{DocumentID: id, ReturnTo: messages.ViewQuery}
		}
	}

	var cmd tea.Cmd
	v.results, cmd = v.results.Update(msg)
	return v, cmd
}

// submit starts the query for the current mode. Empty input and
// submissions while a query is in flight are ignored.
func (v *View) submit() tea.Cmd {
	q := strings.TrimSpace(v.input.Value())
	if q == "" || v.running {
		return nil
	}

	v.query = q
	v.err = nil
	v.running = true
	ctx := v.ctx

	if v.input.Mode() == messages.ModeSearch {
		v.status.SetRunning("Searching...")
		svc := v.search
		return func() tea.Msg {
			if svc == nil {
				return messages.SearchCompleted{Query: q, Err: ErrServiceUnavailable}
			}
			candidates, err := svc.Search(ctx, q, SearchTopK, domain.SearchFilters{})
			return messages.SearchCompleted{Query: q, Candidates: candidates, Err: err}
		}
	}

	v.status.SetRunning("Thinking...")
	svc := v.answers
	return func() tea.Msg {
		if svc == nil {
			return messages.AnswerCompleted{Query: q, Err: ErrServiceUnavailable}
		}
		answer, err := svc.Answer(ctx, q, AskTopK, domain.SearchFilters{})
		return messages.AnswerCompleted{Query: q, Answer: answer, Err: err}
	}
}

func (v *View) setError(err error) {
	v.err = err
	v.status.SetError(err)
	_ = v.input.Focus()
}

// View renders input, answer and results.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("raggy " + v.input.Mode().String()))
	b.WriteString("\n\n")
	b.WriteString(v.input.View())
	b.WriteString("\n\n")

	if v.answer != nil {
		text := v.answer.Text
		if v.answer.IsUnknown() {
			b.WriteString(v.styles.Muted.Render(text))
		} else {
			b.WriteString(v.styles.Answer.Width(max(v.width-4, 20)).Render(text))
			b.WriteString("\n")
			b.WriteString(v.styles.Citation.Render(fmt.Sprintf("Confidence: %.2f", v.answer.Confidence)))
		}
		b.WriteString("\n\n")
	}

	if v.answer == nil || len(v.answer.Citations) > 0 {
		if v.query != "" && !v.running && v.err == nil {
			b.WriteString(v.results.View())
			b.WriteString("\n\n")
		}
	}

	b.WriteString(v.status.View())
	return b.String()
}

// SetDimensions sizes the view and its components.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.status.SetWidth(width)
	// Leave room for title, input, answer box and status bar.
	v.results.SetDimensions(width, max(height-14, 6))
}

// Mode returns the current query mode.
func (v *View) Mode() messages.Mode {
	return v.input.Mode()
}

// Query returns the last submitted query.
func (v *View) Query() string {
	return v.query
}

// Answer returns the last answer, if any.
func (v *View) Answer() *domain.Answer {
	return v.answer
}

// Results returns the listed items.
func (v *View) Results() []list.Item {
	return v.results.Items()
}

// Running reports whether a query is in flight.
func (v *View) Running() bool {
	return v.running
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

// InputFocused reports whether keys go to the query input.
func (v *View) InputFocused() bool {
	return v.input.Focused()
}

// ==================== Helper Functions ====================

func changeView(view messages.ViewType) tea.Cmd {
	return func() tea.Msg {
		return messages.ViewChanged{View: view}
	}
}

func otherMode(m messages.Mode) messages.Mode {
	if m == messages.ModeAsk {
		return messages.ModeSearch
	}
	return messages.ModeAsk
}
