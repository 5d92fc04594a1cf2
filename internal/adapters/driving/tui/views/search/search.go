// Package search provides the query view for the TUI.
package search

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// View represents the query view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.QueryInput
	list      *list.ResultList
	statusbar *status.Bar

	retriever driving.Retriever
	topK      int
	ctx       context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = input mode (typing), false = results mode (navigating)
	expanded   bool // show the full text of the selected chunk
}

// NewView creates a new query view. topK <= 0 uses domain.DefaultTopK.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retriever driving.Retriever,
	topK int,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	if topK <= 0 {
		topK = domain.DefaultTopK
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewQueryInput(s),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		retriever:  retriever,
		topK:       topK,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	v.refreshIndex()
	return v.input.Init()
}

// refreshIndex shows the loaded index in the status bar, if any.
func (v *View) refreshIndex() {
	if v.retriever == nil {
		v.statusbar.SetIndex(nil)
		return
	}
	stats, err := v.retriever.Stats()
	if err != nil {
		v.statusbar.SetIndex(nil)
		return
	}
	v.statusbar.SetIndex(&stats)
}

// Update handles messages for the query view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.QueryCompleted:
		v.handleQueryCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return v, nil
	}

	var inputCmd tea.Cmd
	v.input, inputCmd = v.input.Update(msg)
	if inputCmd != nil {
		cmds = append(cmds, inputCmd)
	}

	var listCmd tea.Cmd
	v.list, listCmd = v.list.Update(msg)
	if listCmd != nil {
		cmds = append(cmds, listCmd)
	}

	return v, tea.Batch(cmds...)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	// Esc collapses an expanded chunk first, then goes back to the menu.
	if msg.Type == tea.KeyEsc {
		if v.expanded {
			v.expanded = false
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if msg.Type == tea.KeyEnter && v.focusInput {
		query := strings.TrimSpace(v.input.Value())
		if query == "" {
			return v, nil
		}
		v.statusbar.Retrieving(v.topK)
		v.focusInput = false
		v.expanded = false
		v.input.Blur()
		return v, v.performQuery(query)
	}

	if v.focusInput {
		v.input, _ = v.input.Update(msg)
		return v, nil
	}

	if msg.Type == tea.KeyEnter {
		if v.list.SelectedResult() != nil {
			v.expanded = !v.expanded
		}
		return v, nil
	}

	//nolint:exhaustive // handling only relevant key types
	switch msg.Type {
	case tea.KeyUp:
		v.list.MoveUp()
		return v, nil
	case tea.KeyDown:
		v.list.MoveDown()
		return v, nil
	}

	switch msg.String() {
	case "k":
		v.list.MoveUp()
	case "j":
		v.list.MoveDown()
	case "n":
		v.focusInput = true
		v.expanded = false
		v.input.Focus()
		v.input.SetValue("")
	}

	return v, nil
}

// performQuery runs the retriever and reports the ranked chunks.
func (v *View) performQuery(query string) tea.Cmd {
	return func() tea.Msg {
		if v.retriever == nil {
			return messages.ErrorOccurred{Err: ErrNoRetriever}
		}

		results, err := v.retriever.Query(v.ctx, query, v.topK)
		if err != nil {
			return messages.QueryCompleted{Results: nil, Err: err}
		}
		return messages.QueryCompleted{Results: results, Err: nil}
	}
}

// handleQueryCompleted processes retrieval results.
func (v *View) handleQueryCompleted(msg messages.QueryCompleted) {
	if msg.Err != nil {
		v.err = msg.Err
		v.statusbar.SetError(msg.Err)
		return
	}

	v.err = nil
	v.list.SetResults(msg.Results)
	v.statusbar.SetResults(msg.Results)

	v.focusInput = false
	v.input.Blur()
}

// View renders the query view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 10)

	sections = append(sections, v.styles.Title.Render("kbindex"), "")
	sections = append(sections, v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Error.Render("Error: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View())

	if v.expanded {
		if passage := v.renderPassage(); passage != "" {
			sections = append(sections, "", passage)
		}
	}

	sections = append(sections, "", v.statusbar.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderPassage renders the full text of the selected chunk.
func (v *View) renderPassage() string {
	result := v.list.SelectedResult()
	if result == nil {
		return ""
	}
	m := result.Metadata
	header := v.styles.Subtitle.Render(fmt.Sprintf("%s#%d", m.Source, m.ChunkID))
	body := v.styles.Passage.Width(maxInt(20, v.width-4)).Render(m.Text)
	return header + "\n" + body
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10) // Reserve space for header, input, status
	v.statusbar.SetWidth(width)
}

// Width returns the current width.
func (v *View) Width() int {
	return v.width
}

// Height returns the current height.
func (v *View) Height() int {
	return v.height
}

// Ready returns whether the view is ready to render.
func (v *View) Ready() bool {
	return v.ready
}

// Query returns the current query text.
func (v *View) Query() string {
	return v.input.Value()
}

// SetQuery sets the query text.
func (v *View) SetQuery(query string) {
	v.input.SetValue(query)
}

// Results returns the current results.
func (v *View) Results() []domain.RetrievalResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// SelectedResult returns the currently selected result.
func (v *View) SelectedResult() *domain.RetrievalResult {
	return v.list.SelectedResult()
}

// Expanded reports whether the selected chunk's full text is shown.
func (v *View) Expanded() bool {
	return v.expanded
}

// Err returns the current error, if any.
func (v *View) Err() error {
	return v.err
}

// ClearError clears the current error.
func (v *View) ClearError() {
	v.err = nil
	v.statusbar.Idle()
}

// Reset resets the view to initial input mode.
func (v *View) Reset() {
	v.focusInput = true
	v.expanded = false
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Idle()
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
