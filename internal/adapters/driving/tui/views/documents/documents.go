// Package documents provides the paged documents list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/components/status"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/keymap"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/messages"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// PageSize is the number of documents requested per page.
const PageSize = 20

var errNoService = errors.New("document service not available")

// View lists ingested documents newest first.
type View struct {
	ctx       context.Context
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	documents driving.DocumentService
	status    *status.Bar

	items    []domain.Document
	offset   int
	selected int
	loading  bool
	err      error

	width  int
	height int
}

// NewView creates a documents view.
func NewView(s *styles.Styles, documents driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	km := keymap.DefaultKeyMap()
	bar := status.NewBar(s, km)
	bar.UseDocumentsHints()

	return &View{
		ctx:       context.Background(),
		styles:    s,
		keymap:    km,
		documents: documents,
		status:    bar,
		width:     80,
		height:    24,
	}
}

// SetContext sets the context used for service calls.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init loads the first page.
func (v *View) Init() tea.Cmd {
	v.offset = 0
	v.selected = 0
	return v.load(0)
}

func (v *View) load(offset int) tea.Cmd {
	v.loading = true
	ctx, svc := v.ctx, v.documents
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentsLoaded{Offset: offset, Err: errNoService}
		}
		docs, err := svc.List(ctx, PageSize, offset)
		return messages.DocumentsLoaded{Documents: docs, Offset: offset, Err: err}
	}
}

// Update handles paging, selection and deletes.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			v.status.SetError(msg.Err)
			return v, nil
		}
		// An empty page past the first means we walked off the end.
		if len(msg.Documents) == 0 && msg.Offset > 0 {
			return v, v.load(max(msg.Offset-PageSize, 0))
		}
		v.err = nil
		v.items = msg.Documents
		v.offset = msg.Offset
		v.selected = min(v.selected, max(len(v.items)-1, 0))
		v.status.SetResults(len(v.items), fmt.Sprintf("Page %d", v.Page()))
		v.status.UseDocumentsHints()
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			v.status.SetError(msg.Err)
			return v, nil
		}
		return v, v.load(v.offset)

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *View) handleKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg { return messages.ViewChanged{View: messages.ViewMenu} }
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.items)-1 {
			v.selected++
		}
	case keymap.Matches(k, v.keymap.NextPage):
		if len(v.items) == PageSize && !v.loading {
			v.selected = 0
			return v, v.load(v.offset + PageSize)
		}
	case keymap.Matches(k, v.keymap.PrevPage):
		if v.offset > 0 && !v.loading {
			v.selected = 0
			return v, v.load(max(v.offset-PageSize, 0))
		}
	case keymap.Matches(k, v.keymap.Open):
		if doc := v.Selected(); doc != nil {
			id := doc.ID
			return v, func() tea.Msg {
				return messages.DocumentRequested{DocumentID: id, ReturnTo: messages.ViewDocuments}
			}
		}
	case keymap.Matches(k, v.keymap.Delete):
		if doc := v.Selected(); doc != nil && v.documents != nil {
			id, ctx, svc := doc.ID, v.ctx, v.documents
			v.status.SetRunning("Deleting " + id + "...")
			return v, func() tea.Msg {
				return messages.DocumentDeleted{DocumentID: id, Err: svc.Delete(ctx, id)}
			}
		}
	}
	return v, nil
}

// View renders the page.
func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Documents"))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.items) == 0:
		b.WriteString(v.styles.Muted.Render("Loading..."))
	case len(v.items) == 0 && v.err == nil:
		b.WriteString(v.styles.Muted.Render("No documents ingested yet. Use `raggy ingest` to add some."))
	default:
		titleWidth := max(v.width-24, 20)
		for i, doc := range v.items {
			title := doc.Title
			if title == "" {
				title = "(untitled)"
			}
			if r := []rune(title); len(r) > titleWidth {
				title = string(r[:titleWidth-1]) + "…"
			}
			line := fmt.Sprintf("%-*s  %s", titleWidth, title, doc.CreatedAt.Format(domain.DateLayout))
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + line))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n\n")
	b.WriteString(v.status.View())
	return b.String()
}

// SetDimensions sets the view size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.status.SetWidth(width)
}

// Documents returns the current page.
func (v *View) Documents() []domain.Document {
	return v.items
}

// Selected returns the highlighted document, or nil.
func (v *View) Selected() *domain.Document {
	if v.selected < 0 || v.selected >= len(v.items) {
		return nil
	}
	return &v.items[v.selected]
}

// Offset returns the offset of the current page.
func (v *View) Offset() int {
	return v.offset
}

// Page returns the one-based page number.
func (v *View) Page() int {
	return v.offset/PageSize + 1
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
