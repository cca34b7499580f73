package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/Dicklesworthstone/procpulse/internal/table"
)

// keyMap holds the dashboard bindings. It implements help.KeyMap.
type keyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Refresh  key.Binding
	Search   key.Binding
	Ask      key.Binding
	Blur     key.Binding
	Submit   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	First    key.Binding
	Last     key.Binding
	GoTo     key.Binding
	Sort     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.Ask, k.Sort, k.NextPage, k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Ask, k.Submit, k.Blur},
		{k.NextPage, k.PrevPage, k.First, k.Last, k.GoTo, k.Sort},
		{k.Refresh, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Refresh:  key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "refresh")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Ask:      key.NewBinding(key.WithKeys("a", "tab"), key.WithHelp("a", "ask")),
	Blur:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back to table")),
	Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	NextPage: key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next page")),
	PrevPage: key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "prev page")),
	First:    key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first page")),
	Last:     key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last page")),
	GoTo:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g N enter", "go to page")),
	Sort:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "sort column")),
}

// sortKeys maps the digit keys to columns, in display order.
var sortKeys = map[string]table.Key{
	"1": table.KeyPID,
	"2": table.KeyName,
	"3": table.KeyStatus,
	"4": table.KeyCPU,
	"5": table.KeyMemory,
	"6": table.KeyUser,
	"7": table.KeyStartTime,
	"8": table.KeyThreads,
	"9": table.KeyPriority,
}
