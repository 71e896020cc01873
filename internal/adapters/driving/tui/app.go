package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mitiak/raggy/internal/adapters/driving/tui/messages"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/styles"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/views/document"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/views/documents"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/views/menu"
	"github.com/mitiak/raggy/internal/adapters/driving/tui/views/query"
)

// App is the root Bubbletea model. It owns the views and routes
// messages to whichever one is active.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles

	menuView      *menu.View
	queryView     *query.View
	documentsView *documents.View
	documentView  *document.View

	currentView messages.ViewType
	err         error

	width  int
	height int
	ready  bool
}

var _ tea.Model = (*App)(nil)

// NewApp creates the TUI application.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	return &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		menuView:      menu.NewView(s),
		queryView:     query.NewView(s, ports.Search, ports.Answer),
		documentsView: documents.NewView(s, ports.Document),
		documentView:  document.NewView(s, ports.Document),
		currentView:   messages.ViewMenu,
	}, nil
}

// WithContext sets the context passed to every service call.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.queryView.SetContext(ctx)
	a.documentsView.SetContext(ctx)
	a.documentView.SetContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.SetWindowTitle("raggy")
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message router
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.currentView == messages.ViewHelp {
			if msg.String() == "esc" || msg.String() == "q" {
				a.currentView = messages.ViewMenu
			}
			return a, nil
		}

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.Resume {
			return a, nil
		}
		switch msg.View {
		case messages.ViewQuery:
			return a, tea.Batch(a.queryView.Reset(msg.Mode), a.queryView.Init())
		case messages.ViewDocuments:
			return a, a.documentsView.Init()
		case messages.ViewMenu, messages.ViewDocument, messages.ViewHelp:
		}
		return a, nil

	case messages.DocumentRequested:
		a.currentView = messages.ViewDocument
		return a, a.documentView.Open(msg.DocumentID, msg.ReturnTo)

	case messages.SearchCompleted, messages.AnswerCompleted:
		a.queryView, cmd = a.queryView.Update(msg)
		return a, cmd

	case messages.DocumentsLoaded, messages.DocumentDeleted:
		a.documentsView, cmd = a.documentsView.Update(msg)
		return a, cmd

	case messages.DocumentLoaded:
		a.documentView, cmd = a.documentView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
	}

	switch a.currentView {
	case messages.ViewMenu:
		a.menuView, cmd = a.menuView.Update(msg)
	case messages.ViewQuery:
		a.queryView, cmd = a.queryView.Update(msg)
	case messages.ViewDocuments:
		a.documentsView, cmd = a.documentsView.Update(msg)
	case messages.ViewDocument:
		a.documentView, cmd = a.documentView.Update(msg)
	case messages.ViewHelp:
	}
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewQuery:
		return a.queryView.View()
	case messages.ViewDocuments:
		return a.documentsView.View()
	case messages.ViewDocument:
		return a.documentView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.menuView.View()
	}
}

func (a *App) viewHelp() string {
	return a.styles.Title.Render("Help") + `

Global:
  ctrl+c      Quit

Ask / Search:
  (type)      Enter a question or query
  tab         Switch between ask and search
  enter       Run
  j/k, ↑/↓    Move through results
  enter       Open the selected document
  /           New query
  esc         Back to menu

Documents:
  j/k, ↑/↓    Move
  ←/→         Previous / next page
  enter       Open
  d           Delete
  esc         Back to menu

` + a.styles.Help.Render("[esc] back to menu")
}

// Run starts the program on the alternate screen and blocks until it exits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last reported error.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sizes every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.menuView.SetDimensions(width, height)
	a.queryView.SetDimensions(width, height)
	a.documentsView.SetDimensions(width, height)
	a.documentView.SetDimensions(width, height)
}
