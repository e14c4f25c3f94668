package preview

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev key.Binding
	Next key.Binding
	GoTo key.Binding
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Prev: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
		Next: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		GoTo: key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "go to dot")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.GoTo, k.Quit}
}
