package panel

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Older     key.Binding
	Newer     key.Binding
	OlderWeek key.Binding
	NewerWeek key.Binding
	Handle    key.Binding
	Reset     key.Binding
	Search    key.Binding
	Focus     key.Binding
	Submit    key.Binding
	Clear     key.Binding
	Delete    key.Binding
	Retry     key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Older:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "older")),
		Newer:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "newer")),
		OlderWeek: key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("H", "week older")),
		NewerWeek: key.NewBinding(key.WithKeys("shift+right", "L"), key.WithHelp("L", "week newer")),
		Handle:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "other handle")),
		Reset:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "all time")),
		Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Focus:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		Clear:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// short returns the bindings shown in the help line for the focused area.
func (k keyMap) short(f focus) []key.Binding {
	switch f {
	case focusSearch:
		return []key.Binding{k.Submit, k.Clear, k.Focus}
	case focusSlider:
		return []key.Binding{k.Older, k.Newer, k.OlderWeek, k.NewerWeek, k.Handle, k.Reset, k.Focus, k.Quit}
	default:
		return []key.Binding{k.Up, k.Down, k.Search, k.Delete, k.Retry, k.Focus, k.Quit}
	}
}
