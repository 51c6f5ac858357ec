package hud

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keyboard bindings for the HUD.
type KeyMap struct {
	Quit     key.Binding
	ExitGame key.Binding
	Events   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		ExitGame: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "stop the game"),
		),
		Events: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "toggle event log"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Events, k.ExitGame, k.Quit}
}
