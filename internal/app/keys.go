package app

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next  key.Binding
	Prev  key.Binding
	Clear key.Binding
	Left  key.Binding
	Right key.Binding
	Quit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next")),
		Prev:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev")),
		Clear: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "scroll")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "scroll")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Clear, k.Left, k.Right, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev, k.Clear}, {k.Left, k.Right, k.Quit}}
}
