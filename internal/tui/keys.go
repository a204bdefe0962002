package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// keyMap holds the TUI key bindings. Bindings not listed here are passed to
// the focused component.
type keyMap struct {
	NextView  key.Binding
	PrevView  key.Binding
	NextField key.Binding
	PrevField key.Binding
	Older     key.Binding
	Newer     key.Binding
	Submit    key.Binding
	Focus     key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev view"),
		),
		NextField: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "prev field"),
		),
		Older: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("↑", "older sim"),
		),
		Newer: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("↓", "newer sim"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run query"),
		),
		Focus: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "form/results"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextView, k.NextField, k.Older, k.Submit, k.Focus, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextView, k.PrevView},
		{k.NextField, k.PrevField, k.Older, k.Newer},
		{k.Submit, k.Focus, k.Quit},
	}
}
