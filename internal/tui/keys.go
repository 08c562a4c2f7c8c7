package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Select       key.Binding
	Up           key.Binding
	Down         key.Binding
	Quit         key.Binding
	Filter       key.Binding
	Reload       key.Binding
	ToggleFormat key.Binding
	FocusLeft    key.Binding
	FocusRight   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Quit:         key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q/esc", "quit")),
		Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Reload:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		ToggleFormat: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "toggle format")),
		FocusLeft:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "focus list")),
		FocusRight:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "focus preview")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Filter, k.Reload, k.ToggleFormat, k.FocusRight, k.FocusLeft, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
