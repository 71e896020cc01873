// Package document shows a single document with its chunks.
package document

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/messages"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
	"github.com/mitiak/raggy/internal/core/domain"
	"github.com/mitiak/raggy/internal/core/ports/driving"
)

// View is a scrollable document detail view.
type View struct {
	ctx       context.Context
	styles    *styles.Styles
	documents driving.DocumentService

	viewport viewport.Model
	document *domain.Document
	returnTo messages.ViewType
	loading  bool
	err      error

	width  int
	height int
}

// NewView creates a document view.
func NewView(s *styles.Styles, documents driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		ctx:       context.Background(),
		styles:    s,
		documents: documents,
		viewport:  viewport.New(80, 20),
		returnTo:  messages.ViewMenu,
		width:     80,
		height:    24,
	}
}

// SetContext sets the context used for loading.
func (v *View) SetContext(ctx context.Context) {
	v.ctx = ctx
}

// Init implements the view contract.
func (v *View) Init() tea.Cmd {
	return nil
}

// Open starts loading documentID; esc later returns to returnTo.
func (v *View) Open(documentID string, returnTo messages.ViewType) tea.Cmd {
	v.document = nil
	v.err = nil
	v.loading = true
	v.returnTo = returnTo
	v.viewport.SetContent("")
	v.viewport.GotoTop()

	ctx, svc := v.ctx, v.documents
	return func() tea.Msg {
		if svc == nil {
			return messages.DocumentLoaded{Err: fmt.Errorf("document service not available")}
		}
		doc, err := svc.Get(ctx, documentID)
		return messages.DocumentLoaded{Document: doc, Err: err}
	}
}

// Update handles loading results, scrolling and esc.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.DocumentLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.document = msg.Document
		v.viewport.SetContent(v.render())
		v.viewport.GotoTop()
		return v, nil

	case tea.KeyMsg:
		if msg.String() == "esc" || msg.String() == "q" {
			returnTo := v.returnTo
			return v, func() tea.Msg {
				return messages.ViewChanged{View: returnTo, Resume: true}
			}
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// View renders the header and scrollable body.
func (v *View) View() string {
	switch {
	case v.loading:
		return v.styles.Muted.Render("Loading document...")
	case v.err != nil:
		return v.styles.Error.Render("Error: "+v.err.Error()) + "\n\n" + v.styles.Help.Render("[esc] back")
	case v.document == nil:
		return v.styles.Muted.Render("No document selected") + "\n\n" + v.styles.Help.Render("[esc] back")
	}

	title := v.document.Title
	if title == "" {
		title = "(untitled)"
	}
	footer := fmt.Sprintf("%3.f%%  [↑/↓] scroll  [esc] back", v.viewport.ScrollPercent()*100)
	return v.styles.Title.Render(title) + "\n\n" + v.viewport.View() + "\n" + v.styles.Help.Render(footer)
}

// render builds the body text: metadata followed by each chunk.
func (v *View) render() string {
	doc := v.document
	var b strings.Builder

	field := func(name, value string) {
		if value == "" {
			return
		}
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%-9s", name+":")))
		b.WriteString(" " + value + "\n")
	}
	field("ID", doc.ID)
	field("Kind", string(doc.SourceKind))
	field("Source", doc.SourceLocation)
	field("Hash", doc.ContentHash)
	if !doc.FetchedAt.IsZero() {
		field("Fetched", doc.FetchedAt.Format(domain.DateLayout))
	}

	if len(doc.Metadata) > 0 {
		keys := make([]string, 0, len(doc.Metadata))
		for k := range doc.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\n" + v.styles.Subtitle.Render("Metadata") + "\n")
		for _, k := range keys {
			val, ok := doc.MetadataString(k)
			if !ok {
				val = fmt.Sprint(doc.Metadata[k])
			}
			b.WriteString(fmt.Sprintf("  %s = %s\n", k, val))
		}
	}

	b.WriteString("\n" + v.styles.Subtitle.Render(fmt.Sprintf("Chunks (%d)", len(doc.Chunks))) + "\n")
	wrap := v.styles.Normal.Width(max(v.width-4, 20))
	for _, c := range doc.Chunks {
		b.WriteString("\n" + v.styles.Muted.Render(fmt.Sprintf("#%d  %d tokens  %s", c.Index, c.TokenCount, c.ID)) + "\n")
		b.WriteString(wrap.Render(c.Text) + "\n")
	}
	return b.String()
}

// SetDimensions resizes the viewport and re-wraps the content.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-4, 3)
	if v.document != nil {
		v.viewport.SetContent(v.render())
	}
}

// Document returns the loaded document.
func (v *View) Document() *domain.Document {
	return v.document
}

// ReturnTo returns the view esc navigates to.
func (v *View) ReturnTo() messages.ViewType {
	return v.returnTo
}

// Err returns the load error, if any.
func (v *View) Err() error {
	return v.err
}
