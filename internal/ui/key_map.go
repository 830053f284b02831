package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	results   key.Binding
	input     key.Binding
	printType key.Binding
	language  key.Binding
	more      key.Binding
	save      key.Binding
	view      key.Binding
	quit      key.Binding
	forceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		results:   key.NewBinding(key.WithKeys("enter", "down"), key.WithHelp("enter", "results")),
		input:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		printType: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "print type")),
		language:  key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "language")),
		more:      key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "load more")),
		save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		view:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "grid/list")),
		quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		forceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.forceQuit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.results, k.input},
		{k.printType, k.language, k.more},
		{k.save, k.view, k.quit},
	}
}

// inputHelp lists the bindings active while typing.
func (k keyMap) inputHelp() []key.Binding {
	return []key.Binding{k.results, k.printType, k.language, k.more, k.forceQuit}
}

// resultsHelp lists the bindings active while browsing results.
func (k keyMap) resultsHelp() []key.Binding {
	return []key.Binding{k.input, k.save, k.view, k.more, k.quit}
}
