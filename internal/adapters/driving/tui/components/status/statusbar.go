// Package status provides the status bar shown at the bottom of query views.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/keymap"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
)

// State is what the bar reports on its left side.
type State string

const (
	StateReady   State = "ready"
	StateRunning State = "running"
	StateError   State = "error"
	StateResults State = "results"
)

// Bar displays state and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	count   int
	hints   []key.Binding
	width   int
}

// NewBar creates a status bar. Nil arguments use the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		hints:  km.InputHelp(),
		width:  80,
	}
}

// View renders the bar across its width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := max(b.width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateRunning:
		if b.message != "" {
			return b.styles.Muted.Render(b.message)
		}
		return b.styles.Muted.Render("Working...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render("Error: " + b.message)
		}
		return b.styles.Error.Render("Error")
	case StateResults:
		if b.message != "" {
			return b.styles.Normal.Render(b.message)
		}
		return b.styles.Normal.Render(fmt.Sprintf("%d results", b.count))
	default:
		return b.styles.Muted.Render("Ready")
	}
}

func (b *Bar) renderRight() string {
	hints := make([]string, 0, len(b.hints))
	for _, binding := range b.hints {
		h := binding.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetRunning shows a progress message.
func (b *Bar) SetRunning(message string) {
	b.state = StateRunning
	b.message = message
}

// SetError shows an error.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.message = ""
	if err != nil {
		b.message = err.Error()
	}
}

// SetResults shows a result count with the result-browsing hints.
func (b *Bar) SetResults(count int, message string) {
	b.state = StateResults
	b.count = count
	b.message = message
	b.hints = b.keymap.ResultsHelp()
}

// UseDocumentsHints switches the hints to the documents list.
func (b *Bar) UseDocumentsHints() {
	b.hints = b.keymap.DocumentsHelp()
}

// Clear resets to the ready state with input hints.
func (b *Bar) Clear() {
	b.state = StateReady
	b.message = ""
	b.count = 0
	b.hints = b.keymap.InputHelp()
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Message returns the current message.
func (b *Bar) Message() string {
	return b.message
}

// Count returns the last result count.
func (b *Bar) Count() int {
	return b.count
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}
