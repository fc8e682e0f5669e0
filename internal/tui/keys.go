package tui

import "github.com/charmbracelet/bubbles/key"

type listKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Sort    key.Binding
	Pay     key.Binding
	Refresh key.Binding
	Find    key.Binding
	Export  key.Binding
	Switch  key.Binding
	Quit    key.Binding
}

type dialogKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

var listKeys = listKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Pay:     key.NewBinding(key.WithKeys("p", "enter"), key.WithHelp("p", "pay")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Find:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "find")),
	Export:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export")),
	Switch:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "history")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var dialogKeys = dialogKeyMap{
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm payment")),
	Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

func (k listKeyMap) help() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Pay, k.Sort, k.Find, k.Refresh, k.Export, k.Switch, k.Quit}
}

func (k dialogKeyMap) help() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}
