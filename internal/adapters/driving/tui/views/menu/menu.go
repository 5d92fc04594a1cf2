// Package menu is the start screen: what is indexed and where to go next.
package menu

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// Item is one entry. Shortcut jumps straight to it; Quit ends the program
// instead of switching view.
type Item struct {
	Label    string
	Hint     string
	Shortcut string
	View     messages.ViewType
	Quit     bool
}

// DefaultItems are the entries of the start screen.
func DefaultItems() []Item {
	return []Item{
		{Label: "Ask", Hint: "retrieve passages for a question", Shortcut: "a", View: messages.ViewSearch},
		{Label: "Index", Hint: "statistics, build history, rebuild", Shortcut: "i", View: messages.ViewIndex},
		{Label: "Help", Hint: "key bindings", Shortcut: "?", View: messages.ViewHelp},
		{Label: "Quit", Shortcut: "q", Quit: true},
	}
}

// View is the start screen.
type View struct {
	styles   *styles.Styles
	items    []Item
	index    *domain.IndexStats
	selected int
	width    int
	height   int
	ready    bool
}

// NewView creates the start screen.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, items: DefaultItems(), width: 80, height: 24}
}

// Init implements the view contract; the menu has no startup work.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update moves the cursor (wrapping at both ends) and activates entries.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "up", "k":
			v.selected = (v.selected - 1 + len(v.items)) % len(v.items)
		case "down", "j", "tab":
			v.selected = (v.selected + 1) % len(v.items)
		case "enter":
			return v, v.activate(v.items[v.selected])
		default:
			for i, item := range v.items {
				if item.Shortcut == key {
					v.selected = i
					return v, v.activate(item)
				}
			}
		}
	}
	return v, nil
}

func (v *View) activate(item Item) tea.Cmd {
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the title, the index line and the entries.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("kbindex"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Knowledge Base Retrieval"))
	b.WriteString("\n\n")
	b.WriteString(v.indexLine())
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("[%s] %-6s", item.Shortcut, item.Label)
		if i == v.selected {
			b.WriteString(v.styles.Selected.Render("> " + label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + label))
		}
		if item.Hint != "" {
			b.WriteString(" ")
			b.WriteString(v.styles.Muted.Render(item.Hint))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] Navigate  [Enter] Select  [a/i/?/q] Jump"))
	return b.String()
}

func (v *View) indexLine() string {
	if v.index == nil {
		return v.styles.Warning.Render("No index loaded. Open Index and rebuild.")
	}
	return v.styles.Normal.Render(fmt.Sprintf("%d chunks from %d sources (%d dims)",
		v.index.Chunks, v.index.Sources, v.index.Dimensions))
}

// SetIndex sets the index shown in the header. Nil means nothing is loaded.
func (v *View) SetIndex(stats *domain.IndexStats) {
	v.index = stats
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Items returns the entries.
func (v *View) Items() []Item {
	return v.items
}

// Selected returns the cursor position.
func (v *View) Selected() int {
	return v.selected
}
