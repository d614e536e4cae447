package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab key.Binding
	PrevTab key.Binding
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Enter   key.Binding
	NextOpt key.Binding
	PrevOpt key.Binding
	Reset   key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		NextTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
		PrevTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev panel")),
		Up:      key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:    key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Left:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←/→", "currency")),
		Right:   key.NewBinding(key.WithKeys("right"), key.WithHelp("←/→", "currency")),
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
		NextOpt: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn/pgup", "address")),
		PrevOpt: key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgdn/pgup", "address")),
		Reset:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// bindings is the help line for the active tab.
func (k keyMap) bindings(tab int) []key.Binding {
	switch tab {
	case tabCompany:
		return []key.Binding{k.NextTab, k.Up, k.Enter, k.Quit}
	case tabFX:
		return []key.Binding{k.NextTab, k.Up, k.Left, k.Enter, k.Reset, k.Quit}
	case tabZipcode:
		return []key.Binding{k.NextTab, k.Up, k.NextOpt, k.Enter, k.Quit}
	default:
		return []key.Binding{k.NextTab, k.Reset, k.Quit}
	}
}
