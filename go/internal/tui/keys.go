package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the checkout screens
type KeyMap struct {
	// Ticket selection.
	Up       key.Binding
	Down     key.Binding
	Increase key.Binding
	Decrease key.Binding

	// Booking form.
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding

	// Payment.
	MethodOnline key.Binding
	MethodCash   key.Binding

	Confirm key.Binding
	Leave   key.Binding

	// Dialogs.
	Yes      key.Binding
	No       key.Binding
	Continue key.Binding
	Discard  key.Binding

	Quit      key.Binding
	ForceQuit key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("↓", "down"),
	),
	Increase: key.NewBinding(
		key.WithKeys("+", "l", "right"),
		key.WithHelp("+", "more"),
	),
	Decrease: key.NewBinding(
		key.WithKeys("-", "h", "left"),
		key.WithHelp("-", "fewer"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-tab", "previous field"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "submit"),
	),
	MethodOnline: key.NewBinding(
		key.WithKeys("1", "left"),
		key.WithHelp("1", "VNPAY"),
	),
	MethodCash: key.NewBinding(
		key.WithKeys("2", "right"),
		key.WithHelp("2", "cash"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "continue"),
	),
	Leave: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "leave"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "leave"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n", "stay"),
	),
	Continue: key.NewBinding(
		key.WithKeys("c", "enter"),
		key.WithHelp("c", "continue"),
	),
	Discard: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "start over"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "quit"),
	),
}

func helpLine(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += " · "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
