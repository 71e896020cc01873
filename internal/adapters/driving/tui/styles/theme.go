// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the colour palette of the TUI.
type Theme struct {
	Accent    lipgloss.Color
	Secondary lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Good      lipgloss.Color
	Fair      lipgloss.Color
	Bad       lipgloss.Color
	Border    lipgloss.Color
	Bar       lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#0EA5E9"), // sky
		Secondary: lipgloss.Color("#A78BFA"), // violet
		Text:      lipgloss.Color("#E2E8F0"),
		Muted:     lipgloss.Color("#64748B"),
		Good:      lipgloss.Color("#4ADE80"),
		Fair:      lipgloss.Color("#FACC15"),
		Bad:       lipgloss.Color("#F87171"),
		Border:    lipgloss.Color("#334155"),
		Bar:       lipgloss.Color("#0F172A"),
	}
}

// Styles holds the lipgloss styles derived from a Theme.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	// Answer frames extracted answer text.
	Answer lipgloss.Style

	// Citation renders a citation line under an answer.
	Citation lipgloss.Style

	Input     lipgloss.Style
	StatusBar lipgloss.Style
	Help      lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	return &Styles{
		theme:    theme,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Subtitle: lipgloss.NewStyle().Bold(true).Foreground(theme.Secondary),
		Normal:   lipgloss.NewStyle().Foreground(theme.Text),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(theme.Bar).Background(theme.Accent),
		Error:    lipgloss.NewStyle().Foreground(theme.Bad),
		Success:  lipgloss.NewStyle().Foreground(theme.Good),
		Answer: border.
			BorderForeground(theme.Secondary).
			Foreground(theme.Text).
			Padding(0, 1),
		Citation:  lipgloss.NewStyle().Foreground(theme.Muted).PaddingLeft(2),
		Input:     border.Padding(0, 1),
		StatusBar: lipgloss.NewStyle().Foreground(theme.Muted).Background(theme.Bar).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(theme.Muted),
		Border:    border,
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}

// Score colours a similarity score by strength.
func (s *Styles) Score(score float64) lipgloss.Style {
	switch {
	case score >= 0.75:
		return lipgloss.NewStyle().Foreground(s.theme.Good)
	case score >= 0.4:
		return lipgloss.NewStyle().Foreground(s.theme.Fair)
	default:
		return lipgloss.NewStyle().Foreground(s.theme.Bad)
	}
}
