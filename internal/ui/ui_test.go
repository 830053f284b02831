package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/search"
	"github.com/desertthunder/readx/internal/services"
)

type nopCatalog struct{}

func (nopCatalog) Search(context.Context, services.SearchRequest) (*services.SearchResult, error) {
	return &services.SearchResult{}, nil
}

func (nopCatalog) GetBook(context.Context, string) (*models.Book, error) { return nil, nil }

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel(context.Background(), nopCatalog{}, nil, nil, search.WithDebounce(time.Hour))
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return m
}

func TestNext(t *testing.T) {
	tests := []struct {
		current string
		want    string
	}{
		{"", "en"},
		{"en", "es"},
		{"pt", ""},
		{"xx", ""},
	}

	for _, tt := range tests {
		if got := next(Languages, tt.current); got != tt.want {
			t.Errorf("next(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestBookItem(t *testing.T) {
	item := bookItem{book: models.Book{
		Title:         "Dune",
		Authors:       []string{"Frank Herbert"},
		PublishedYear: "1965",
		PageCount:     412,
	}}

	if got := item.Description(); got != "Frank Herbert • 1965 • 412 pages" {
		t.Errorf("Description() = %q", got)
	}
	if item.Title() != "Dune" {
		t.Errorf("Title() = %q", item.Title())
	}

	item.saved = true
	if !strings.HasPrefix(item.Title(), "Dune ") {
		t.Errorf("saved Title() = %q", item.Title())
	}
}

func TestModelSearchState(t *testing.T) {
	m := newTestModel(t)

	state := search.State{
		Query:      "dune",
		Results:    []models.Book{{ID: "a", Title: "Dune"}, {ID: "b", Title: "Dune Messiah"}},
		TotalItems: 2,
		ViewMode:   models.ViewList,
	}
	m.Update(searchStateMsg(state))

	if got := len(m.results.Items()); got != 2 {
		t.Fatalf("items = %d, want 2", got)
	}
	if !strings.Contains(m.View(), "Showing 2 of 2") {
		t.Errorf("view missing result count:\n%s", m.View())
	}

	t.Run("focus switching", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.focus != FocusResults {
			t.Fatalf("focus = %v, want results", m.focus)
		}

		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
		if !strings.Contains(m.status, "Sign in") {
			t.Errorf("status = %q, want sign in prompt", m.status)
		}
		if m.input.Value() != "" {
			t.Errorf("results keys leaked into input: %q", m.input.Value())
		}

		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
		if m.focus != FocusInput {
			t.Errorf("focus = %v, want input", m.focus)
		}
	})

	t.Run("empty results return focus to input", func(t *testing.T) {
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(searchStateMsg(search.State{Reason: search.ReasonNoResults, Message: search.MsgNoResults}))

		if m.focus != FocusInput {
			t.Errorf("focus = %v, want input", m.focus)
		}
		if !strings.Contains(m.View(), search.MsgNoResults) {
			t.Errorf("view missing no-results message")
		}
	})
}

func TestModelTyping(t *testing.T) {
	m := newTestModel(t)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("go")})

	if m.input.Value() != "go" {
		t.Fatalf("input = %q", m.input.Value())
	}
	if got := m.controller.State().Query; got != "go" {
		t.Errorf("controller query = %q, want go", got)
	}
}
