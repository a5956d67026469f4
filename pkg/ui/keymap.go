package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrev key.Binding
	SelectNext key.Binding
	Activate   key.Binding
	Explore    key.Binding
	Ask        key.Binding
	Excerpt    key.Binding
	Chat       key.Binding
	Submit     key.Binding
	Back       key.Binding

	Reset         key.Binding
	Conversations key.Binding
	Delete        key.Binding
	Rename        key.Binding
	Search        key.Binding

	ScrollUp   key.Binding
	ScrollDown key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrev: key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
	SelectNext: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
	Activate:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Explore:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "explore answer")),
	Ask:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "ask about answer")),
	Excerpt:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "explore excerpt")),
	Chat:       key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "new question")),
	Submit:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "submit")),
	Back:       key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "back")),

	Reset:         key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "new conversation")),
	Conversations: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "conversations")),
	Delete:        key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Rename:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
	Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),

	ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdown", "scroll down")),

	Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Activate, k.Explore, k.Chat, k.Submit, k.Back, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SelectPrev, k.SelectNext, k.Activate, k.Back},
		{k.Explore, k.Ask, k.Excerpt, k.Chat, k.Submit},
		{k.Reset, k.Conversations, k.Delete, k.Rename, k.Search},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
