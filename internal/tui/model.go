// Package tui implements the interactive task page.
package tui

import (
	"context"
	"net/http"
	"net/url"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/colonyops/tasklet/internal/render"
	"github.com/colonyops/tasklet/internal/tasks"
	"github.com/colonyops/tasklet/internal/web"
)

// DefaultTitle is shown until the manifest has been loaded.
const DefaultTitle = "Todo"

// Deps are the collaborators the task page needs.
type Deps struct {
	Manager *tasks.Manager
	View    *render.List
	// Client loads the page shell. With the worker host as its transport the
	// page load goes through the offline cache.
	Client *http.Client
	Origin *url.URL
	// Statuses delivers online (true) / offline (false) transitions.
	Statuses <-chan bool
	Log      zerolog.Logger
}

type focus int

const (
	focusInput focus = iota
	focusList
)

type (
	statusMsg   bool
	manifestMsg struct {
		manifest web.Manifest
		err      error
	}
)

// Model is the bubbletea model of the task page.
type Model struct {
	ctx  context.Context
	deps Deps

	input  textinput.Model
	focus  focus
	cursor int
	title  string
	err    error
	width  int
}

// New creates the task page model. The manager must already be loaded.
func New(ctx context.Context, deps Deps) *Model {
	input := textinput.New()
	input.Placeholder = "할 일을 입력하세요"
	input.CharLimit = 500
	input.Focus()

	return &Model{
		ctx:   ctx,
		deps:  deps,
		input: input,
		title: DefaultTitle,
	}
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	program := tea.NewProgram(New(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.loadManifest(),
		waitForStatus(m.deps.Statuses),
	)
}

func (m *Model) loadManifest() tea.Cmd {
	if m.deps.Client == nil || m.deps.Origin == nil {
		return nil
	}
	return func() tea.Msg {
		manifest, err := web.LoadManifest(m.ctx, m.deps.Client, m.deps.Origin)
		return manifestMsg{manifest: manifest, err: err}
	}
}

func waitForStatus(ch <-chan bool) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		online, ok := <-ch
		if !ok {
			return nil
		}
		return statusMsg(online)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case statusMsg:
		m.deps.Manager.SetOnline(bool(msg))
		return m, waitForStatus(m.deps.Statuses)

	case manifestMsg:
		if msg.err != nil {
			m.deps.Log.Debug().Err(msg.err).Msg("manifest unavailable, keeping default title")
			return m, nil
		}
		if msg.manifest.Name != "" {
			m.title = msg.manifest.Name
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus == focusInput {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}

	return m, nil
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.submit()
		return m, nil
	case "tab", "esc":
		m.setFocus(focusList)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() {
	_, ok, err := m.deps.Manager.Add(m.ctx, m.input.Value())
	m.err = err
	if err != nil || !ok {
		return
	}
	m.input.Reset()
	m.cursor = len(m.deps.View.Rows()) - 1
}

func (m *Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.deps.View.Rows()

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "tab", "i", "a":
		m.setFocus(focusInput)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case " ", "x", "enter":
		if row, ok := m.selected(rows); ok {
			m.err = m.deps.Manager.Toggle(m.ctx, row.ID)
		}
	case "d", "delete":
		if row, ok := m.selected(rows); ok {
			m.err = m.deps.Manager.Delete(m.ctx, row.ID)
			m.cursor = min(m.cursor, len(m.deps.View.Rows())-1)
			m.cursor = max(m.cursor, 0)
		}
	}

	return m, nil
}

func (m *Model) selected(rows []render.Row) (render.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(rows) {
		return render.Row{}, false
	}
	return rows[m.cursor], true
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusInput {
		m.input.Focus()
		return
	}
	m.input.Blur()
}
