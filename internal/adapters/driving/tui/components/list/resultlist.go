// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
	"github.com/mitiak/raggy/internal/core/domain"
)

// Item is one row of a result list.
type Item struct {
	DocumentID string
	ChunkID    string
	Title      string
	Location   string
	Preview    string
	Score      float64
}

// FromCandidates converts search candidates to items.
func FromCandidates(candidates []domain.Candidate) []Item {
	items := make([]Item, len(candidates))
	for i, c := range candidates {
		items[i] = Item{
			DocumentID: c.Document.ID,
			ChunkID:    c.Chunk.ID,
			Title:      c.Document.Title,
			Location:   c.Document.SourceLocation,
			Preview:    c.Chunk.Text,
			Score:      c.Score,
		}
	}
	return items
}

// FromCitations converts answer citations to items.
func FromCitations(citations []domain.Citation) []Item {
	items := make([]Item, len(citations))
	for i, c := range citations {
		items[i] = Item{
			DocumentID: c.DocumentID,
			ChunkID:    c.ChunkID,
			Title:      c.Title,
			Location:   c.URL,
			Score:      c.Score,
		}
	}
	return items
}

// ResultList is a navigable, scrolling list of items.
type ResultList struct {
	header   string
	items    []Item
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates an empty list.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &ResultList{
		header: "Results",
		styles: s,
		width:  80,
		height: 12,
	}
}

// Init implements the component contract.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the visible window of items around the selection.
func (r *ResultList) View() string {
	if len(r.items) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := []string{r.styles.Subtitle.Render(fmt.Sprintf("%s (%d)", r.header, len(r.items))), ""}

	// Each item takes up to three lines.
	visible := max((r.height-2)/3, 1)
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := min(start+visible, len(r.items))

	for i := start; i < end; i++ {
		lines = append(lines, r.renderItem(i))
	}
	return strings.Join(lines, "\n")
}

func (r *ResultList) renderItem(i int) string {
	item := r.items[i]
	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	titleWidth := max(r.width-14, 10)
	title = clip(title, titleWidth)
	score := fmt.Sprintf("%.3f", item.Score)

	var head string
	if i == r.selected {
		head = r.styles.Selected.Render(fmt.Sprintf("> %-*s  %s", titleWidth, title, score))
	} else {
		head = r.styles.Normal.Render(fmt.Sprintf("  %-*s  ", titleWidth, title)) +
			r.styles.Score(item.Score).Render(score)
	}

	var b strings.Builder
	b.WriteString(head)
	if item.Location != "" {
		b.WriteString("\n" + r.styles.Muted.Render("    "+clip(item.Location, max(r.width-6, 20))))
	}
	if item.Preview != "" {
		preview := strings.Join(strings.Fields(item.Preview), " ")
		b.WriteString("\n" + r.styles.Normal.Render("    "+clip(preview, max(r.width-6, 20))))
	}
	return b.String()
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// SetHeader changes the list heading.
func (r *ResultList) SetHeader(header string) {
	r.header = header
}

// SetItems replaces the items and resets the selection.
func (r *ResultList) SetItems(items []Item) {
	r.items = items
	r.selected = 0
}

// Items returns the current items.
func (r *ResultList) Items() []Item {
	return r.items
}

// Selected returns the selected index.
func (r *ResultList) Selected() int {
	return r.selected
}

// SelectedItem returns the selected item, or nil when empty.
func (r *ResultList) SelectedItem() *Item {
	if r.selected < 0 || r.selected >= len(r.items) {
		return nil
	}
	return &r.items[r.selected]
}

// MoveUp moves the selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves the selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.items)-1 {
		r.selected++
	}
}

// SetDimensions sets the render area.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of items.
func (r *ResultList) Count() int {
	return len(r.items)
}
