package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/readx/internal/models"
	"github.com/desertthunder/readx/internal/search"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSearchState MsgKind = iota
	MsgBookSaved
)

type savedResult struct {
	book models.Book
	err  error
}

// searchStateMsg is the constructor for [MsgSearchState]
func searchStateMsg(s search.State) Msg {
	return Msg{kind: MsgSearchState, data: s}
}

// bookSavedMsg is the constructor for [MsgBookSaved]
func bookSavedMsg(book models.Book, err error) Msg {
	return Msg{kind: MsgBookSaved, data: savedResult{book, err}}
}
