package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/readx/internal/auth"
	"github.com/desertthunder/readx/internal/library"
	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/search"
	"github.com/desertthunder/readx/internal/services"
	"github.com/desertthunder/readx/internal/shared"
)

// Languages cycled by ctrl+l. The empty code means any language.
var Languages = []string{"", "en", "es", "fr", "de", "it", "pt"}

// Focus is the part of the screen receiving keys.
type Focus int

const (
	FocusInput Focus = iota
	FocusResults
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	controller *search.Controller
	identity   *auth.Provider
	library    *library.Store
	updates    chan search.State

	state    search.State
	focus    Focus
	status   string
	input    textinput.Model
	results  list.Model
	delegate list.DefaultDelegate
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// NewModel creates the search screen. identity and lib may be nil, in which case saving is disabled.
func NewModel(ctx context.Context, catalog services.Catalog, identity *auth.Provider, lib *library.Store, opts ...search.Option) *Model {
	input := textinput.New()
	input.Placeholder = "Search by title, author or subject"
	input.CharLimit = 200
	input.Focus()

	delegate := list.NewDefaultDelegate()
	results := list.New(nil, delegate, 0, 0)
	results.Title = "Results"
	results.SetShowHelp(false)
	results.SetFilteringEnabled(false)
	results.SetShowStatusBar(false)

	m := &Model{
		ctx:      ctx,
		identity: identity,
		library:  lib,
		updates:  make(chan search.State, 1),
		input:    input,
		results:  results,
		delegate: delegate,
		help:     help.New(),
		keys:     newKeyMap(),
	}

	opts = append(opts, search.WithStateListener(m.push))
	m.controller = search.NewController(catalog, opts...)
	m.state = m.controller.State()
	m.delegate.ShowDescription = m.state.ViewMode != models.ViewGrid
	m.results.SetDelegate(m.delegate)
	return m
}

// Close stops any pending search.
func (m *Model) Close() {
	m.controller.Close()
}

// State returns the last controller state the screen rendered.
func (m *Model) State() search.State {
	return m.state
}

// push keeps only the newest state so a slow render never blocks the controller.
func (m *Model) push(s search.State) {
	for {
		select {
		case m.updates <- s:
			return
		default:
		}
		select {
		case <-m.updates:
		default:
		}
	}
}

func (m *Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.updates:
			return searchStateMsg(s)
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

// Init starts the cursor blink and the state listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForState())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-6)
		m.results.SetSize(msg.Width-4, max(3, msg.Height-10))
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgSearchState:
			cmd := m.applyState(msg.data.(search.State))
			return m, tea.Batch(cmd, m.waitForState())
		case MsgBookSaved:
			return m, m.applySaved(msg.data.(savedResult))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateFocused(msg)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.forceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.printType):
		m.cyclePrintType()
		return m, nil
	case key.Matches(msg, m.keys.language):
		m.cycleLanguage()
		return m, nil
	case key.Matches(msg, m.keys.more):
		if !m.controller.LoadMore() {
			m.status = styles.help.Render("Nothing more to load")
		}
		return m, nil
	}

	if m.focus == FocusInput {
		if key.Matches(msg, m.keys.results) && len(m.results.Items()) > 0 {
			m.setFocus(FocusResults)
			return m, nil
		}

		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			m.status = ""
			m.controller.SetQuery(m.input.Value())
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.input):
		m.setFocus(FocusInput)
		return m, textinput.Blink
	case key.Matches(msg, m.keys.save):
		if item, ok := m.results.SelectedItem().(bookItem); ok {
			return m, m.save(item.book)
		}
		return m, nil
	case key.Matches(msg, m.keys.view):
		m.controller.ToggleViewMode()
		return m, nil
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.focus == FocusInput {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) setFocus(f Focus) {
	m.focus = f
	if f == FocusInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) cyclePrintType() {
	f := m.state.Filters
	f.PrintType = next(models.PrintTypes, f.PrintType)
	m.controller.SetFilters(f)
}

func (m *Model) cycleLanguage() {
	f := m.state.Filters
	f.Language = next(Languages, f.Language)
	m.controller.SetFilters(f)
}

// next returns the value after current in values, wrapping around. Unknown values restart the cycle.
func next(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m *Model) saved(bookID string) bool {
	return m.library != nil && m.library.IsSaved(bookID)
}

func (m *Model) applyState(s search.State) tea.Cmd {
	viewChanged := s.ViewMode != m.state.ViewMode
	m.state = s

	if viewChanged {
		m.delegate.ShowDescription = s.ViewMode != models.ViewGrid
		m.results.SetDelegate(m.delegate)
	}

	cmd := m.results.SetItems(bookItems(s.Results, m.saved))
	if len(s.Results) == 0 && m.focus == FocusResults {
		m.setFocus(FocusInput)
	}
	return cmd
}

func (m *Model) save(book models.Book) tea.Cmd {
	if m.identity == nil || m.identity.Current() == nil || m.library == nil {
		m.status = styles.warn.Render("Sign in to save books")
		return nil
	}
	if m.library.IsSaved(book.ID) {
		m.status = styles.help.Render("Already in your library")
		return nil
	}

	m.status = styles.help.Render("Saving...")
	return func() tea.Msg {
		_, err := m.library.Save(m.ctx, book)
		return bookSavedMsg(book, err)
	}
}

func (m *Model) applySaved(res savedResult) tea.Cmd {
	switch {
	case errors.Is(res.err, shared.ErrDuplicateEntry):
		m.status = styles.help.Render("Already in your library")
	case res.err != nil:
		m.status = styles.err.Render("Save failed: " + auth.Message(res.err))
	default:
		m.status = styles.ok.Render(fmt.Sprintf("Saved %q", res.book.Title))
	}
	return m.results.SetItems(bookItems(m.state.Results, m.saved))
}

// View renders the search screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("readx"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderFilters())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	if len(m.results.Items()) > 0 {
		b.WriteString(m.results.View())
		b.WriteString("\n")
	}

	keys := m.keys.inputHelp()
	if m.focus == FocusResults {
		keys = m.keys.resultsHelp()
	}
	b.WriteString(m.help.ShortHelpView(keys))
	return b.String()
}

func (m *Model) renderFilters() string {
	f := m.state.Filters
	printType := f.PrintType
	if printType == "" {
		printType = models.PrintTypeAll
	}
	lang := f.Language
	if lang == "" {
		lang = "any"
	}
	view := m.state.ViewMode
	if view == "" {
		view = models.ViewGrid
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.chip.Render("type: "+printType),
		styles.chip.Render("lang: "+lang),
		styles.chip.Render("view: "+string(view)),
	)
}

func (m *Model) renderStatus() string {
	s := m.state
	switch {
	case s.Loading:
		return styles.help.Render("Searching...")
	case s.LoadingMore:
		return styles.help.Render("Loading more...")
	case s.Reason == search.ReasonError:
		return styles.err.Render(s.Message)
	case s.Reason == search.ReasonNoResults:
		return styles.warn.Render(s.Message)
	case m.status != "":
		return m.status
	case len(s.Results) > 0:
		more := ""
		if s.HasMore {
			more = " (ctrl+n for more)"
		}
		return styles.help.Render(fmt.Sprintf("Showing %d of %d%s", len(s.Results), s.TotalItems, more))
	default:
		return styles.help.Render("Start typing to search")
	}
}
