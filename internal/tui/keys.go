package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the whole application.
type KeyMap struct {
	Tasks   TasksKeyMap
	Library LibraryKeyMap
	Search  SearchKeyMap
	Input   InputKeyMap
}

// TasksKeyMap drives the task dashboard.
type TasksKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PauseResume key.Binding
	Cancel      key.Binding
	Clear       key.Binding
	Sync        key.Binding
	Search      key.Binding
	NextTab     key.Binding
	Quit        key.Binding
}

// LibraryKeyMap drives the downloaded-comics view.
type LibraryKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Download key.Binding
	Reload   key.Binding
	NextTab  key.Binding
	Quit     key.Binding
}

// SearchKeyMap drives the search-results view.
type SearchKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Download key.Binding
	Back     key.Binding
	Quit     key.Binding
}

// InputKeyMap drives the search input.
type InputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// Keys holds the application keybindings.
var Keys = KeyMap{
	Tasks: TasksKeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PauseResume: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause/resume")),
		Cancel:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel")),
		Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear finished")),
		Sync:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync favorites")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "library")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	},
	Library: LibraryKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Download: key.NewBinding(key.WithKeys("d", "enter"), key.WithHelp("d", "download missing")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "tasks")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	},
	Search: SearchKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Download: key.NewBinding(key.WithKeys("d", "enter"), key.WithHelp("d", "download")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	},
	Input: InputKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	},
}
