package editor

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Apply  key.Binding
	Undo   key.Binding
	Redo   key.Binding
	Inc    key.Binding
	Dec    key.Binding
	Clear  key.Binding
	Export key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Apply:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		Undo:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Redo:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo")),
		Inc:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "intensity up")),
		Dec:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "intensity down")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
		Export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Apply, k.Undo, k.Redo, k.Export, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Apply},
		{k.Undo, k.Redo, k.Clear},
		{k.Inc, k.Dec, k.Export},
		{k.Help, k.Quit},
	}
}
