// Package index provides the index overview view for the TUI.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// recentBuilds is how many history entries the view shows.
const recentBuilds = 5

// MenuOption represents an action in the index menu.
type MenuOption int

const (
	OptionRebuild MenuOption = iota
	OptionReload
	OptionBack
)

// View is the index overview.
type View struct {
	styles    *styles.Styles
	builder   driving.IndexBuilder
	retriever driving.Retriever
	history   driving.BuildHistoryService
	ctx       context.Context

	stats     *domain.IndexStats
	builds    []domain.BuildReport
	lastBuild *domain.BuildReport
	selected  MenuOption
	width     int
	height    int
	ready     bool
	err       error
	building  bool
}

// NewView creates a new index view. Any of the services may be nil; the
// corresponding action then reports an error instead.
func NewView(
	s *styles.Styles,
	builder driving.IndexBuilder,
	retriever driving.Retriever,
	history driving.BuildHistoryService,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:    s,
		builder:   builder,
		retriever: retriever,
		history:   history,
		ctx:       context.Background(),
		selected:  OptionRebuild,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads index statistics and build history.
func (v *View) Init() tea.Cmd {
	return v.load()
}

// load returns a command that reads stats and recent builds.
func (v *View) load() tea.Cmd {
	return func() tea.Msg {
		msg := messages.IndexLoaded{}
		if v.retriever != nil {
			stats, err := v.retriever.Stats()
			switch {
			case err == nil:
				msg.Stats = &stats
			case !errors.Is(err, domain.ErrIndexNotLoaded):
				msg.Err = err
			}
		}
		if v.history != nil {
			builds, err := v.history.Recent(v.ctx, recentBuilds)
			if err != nil && msg.Err == nil {
				msg.Err = err
			}
			msg.Builds = builds
		}
		return msg
	}
}

// Update handles messages for the index view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.ready = true
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.IndexLoaded:
		v.stats = msg.Stats
		v.builds = msg.Builds
		v.err = msg.Err
		return v, nil

	case messages.BuildCompleted:
		v.building = false
		v.lastBuild = msg.Report
		v.err = msg.Err
		if msg.Err != nil {
			return v, nil
		}
		// Pick up the new artifact.
		return v, v.reload()

	case messages.IndexReloaded:
		v.err = msg.Err
		return v, v.load()

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.building = false
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if v.selected > OptionRebuild {
			v.selected--
		}
	case "down", "j":
		if v.selected < OptionBack {
			v.selected++
		}
	case "r":
		return v.startBuild()
	case "enter":
		return v.handleSelect()
	case "esc":
		return v, backToMenu
	}

	return v, nil
}

// handleSelect handles selection of a menu option.
func (v *View) handleSelect() (*View, tea.Cmd) {
	switch v.selected {
	case OptionRebuild:
		return v.startBuild()
	case OptionReload:
		return v, v.reload()
	case OptionBack:
		return v, backToMenu
	}
	return v, nil
}

func (v *View) startBuild() (*View, tea.Cmd) {
	if v.building {
		return v, nil
	}
	v.building = true
	v.err = nil
	return v, v.build()
}

// build returns a command that rebuilds the index.
func (v *View) build() tea.Cmd {
	return func() tea.Msg {
		if v.builder == nil {
			return messages.ErrorOccurred{Err: fmt.Errorf("index builder not available")}
		}
		report, err := v.builder.Build(v.ctx)
		return messages.BuildCompleted{Report: report, Err: err}
	}
}

// reload returns a command that re-reads the artifact.
func (v *View) reload() tea.Cmd {
	return func() tea.Msg {
		if v.retriever == nil {
			return messages.ErrorOccurred{Err: fmt.Errorf("retriever not available")}
		}
		return messages.IndexReloaded{Err: v.retriever.Reload(v.ctx)}
	}
}

func backToMenu() tea.Msg {
	return messages.ViewChanged{View: messages.ViewMenu}
}

// View renders the index view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Index"))
	b.WriteString("\n\n")

	if v.stats == nil {
		b.WriteString(v.styles.Muted.Render("No index loaded. Rebuild to create one."))
		b.WriteString("\n")
	} else {
		v.writeField(&b, "Artifact", v.stats.Path)
		v.writeField(&b, "Chunks", fmt.Sprintf("%d", v.stats.Chunks))
		v.writeField(&b, "Dimensions", fmt.Sprintf("%d", v.stats.Dimensions))
		v.writeField(&b, "Sources", fmt.Sprintf("%d", v.stats.Sources))
		if !v.stats.LoadedAt.IsZero() {
			v.writeField(&b, "Loaded", v.stats.LoadedAt.Format("2006-01-02 15:04:05"))
		}
	}
	b.WriteString("\n")

	b.WriteString(v.styles.Subtitle.Render("Recent Builds"))
	b.WriteString("\n")
	if len(v.builds) == 0 {
		b.WriteString(v.styles.Muted.Render("  No builds recorded"))
		b.WriteString("\n")
	}
	for i := range v.builds {
		b.WriteString(v.renderBuild(&v.builds[i]))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	}

	if v.building {
		b.WriteString(v.styles.Muted.Render("Building index..."))
		b.WriteString("\n\n")
	} else if v.lastBuild != nil && v.lastBuild.Status == domain.BuildSucceeded {
		b.WriteString(v.styles.Success.Render(fmt.Sprintf("Indexed %d documents into %d chunks",
			v.lastBuild.Documents, v.lastBuild.Chunks)))
		b.WriteString("\n\n")
	}

	b.WriteString(strings.Repeat("─", maxInt(0, minInt(40, v.width-4))))
	b.WriteString("\n\n")

	options := []struct {
		option MenuOption
		label  string
	}{
		{OptionRebuild, "Rebuild Now"},
		{OptionReload, "Reload Index"},
		{OptionBack, "Back"},
	}

	for _, opt := range options {
		if v.selected == opt.option {
			b.WriteString(v.styles.Selected.Render("> " + opt.label))
		} else {
			b.WriteString(v.styles.Normal.Render("  " + opt.label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[↑/↓] navigate  [enter] select  [r] rebuild  [esc] back"))

	return b.String()
}

func (v *View) writeField(b *strings.Builder, label, value string) {
	b.WriteString(v.styles.Subtitle.Render(label + ": "))
	b.WriteString(v.styles.Normal.Render(value))
	b.WriteString("\n")
}

func (v *View) renderBuild(r *domain.BuildReport) string {
	line := fmt.Sprintf("  %s  %-9s %d docs, %d chunks",
		r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Documents, r.Chunks)
	if r.Status == domain.BuildFailed {
		return v.styles.Error.Render(line)
	}
	return v.styles.Normal.Render(line)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Ready returns whether the view has dimensions.
func (v *View) Ready() bool {
	return v.ready
}

// Stats returns the displayed index statistics, or nil.
func (v *View) Stats() *domain.IndexStats {
	return v.stats
}

// Builds returns the displayed build history.
func (v *View) Builds() []domain.BuildReport {
	return v.builds
}

// SelectedOption returns the currently selected menu option.
func (v *View) SelectedOption() MenuOption {
	return v.selected
}

// Building reports whether a rebuild is running.
func (v *View) Building() bool {
	return v.building
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
