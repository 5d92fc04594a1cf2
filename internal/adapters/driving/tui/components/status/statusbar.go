// Package status renders the one-line summary under the query view.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// State is what the query view is doing.
type State string

const (
	StateIdle       State = "idle"
	StateRetrieving State = "retrieving"
	StateResults    State = "results"
	StateError      State = "error"
)

// Summary describes the last retrieval.
type Summary struct {
	Chunks    int
	Sources   int
	BestScore float64
}

// Summarise condenses ranked results into a Summary.
func Summarise(results []domain.RetrievalResult) Summary {
	sum := Summary{Chunks: len(results)}
	seen := make(map[string]struct{}, len(results))
	for i, r := range results {
		if i == 0 || r.Score > sum.BestScore {
			sum.BestScore = r.Score
		}
		if _, ok := seen[r.Metadata.Source]; !ok {
			seen[r.Metadata.Source] = struct{}{}
			sum.Sources++
		}
	}
	return sum
}

// Bar shows the index or the last retrieval on the left and key hints on
// the right. It is passive: the owning view pushes state into it.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	state   State
	index   *domain.IndexStats
	summary Summary
	topK    int
	errText string
	width   int
}

// NewBar creates a status bar.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateIdle, width: 80}
}

// View renders the bar at its current width.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderHints()

	inner := b.width - b.styles.StatusBar.GetHorizontalFrameSize()
	padding := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateRetrieving:
		return b.styles.Muted.Render(fmt.Sprintf("Retrieving top %d...", b.topK))
	case StateResults:
		if b.summary.Chunks == 0 {
			return b.styles.Muted.Render("No matching chunks")
		}
		return b.styles.Normal.Render(fmt.Sprintf("%d chunks from %d sources, best %.3f",
			b.summary.Chunks, b.summary.Sources, b.summary.BestScore))
	case StateError:
		if b.errText == "" {
			return b.styles.Error.Render("Error")
		}
		return b.styles.Error.Render("Error: " + b.errText)
	}

	if b.index == nil {
		return b.styles.Muted.Render("No index loaded")
	}
	return b.styles.Muted.Render(fmt.Sprintf("Index: %d chunks, %d dims", b.index.Chunks, b.index.Dimensions))
}

func (b *Bar) renderHints() string {
	bindings := b.Bindings()
	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		hints = append(hints, h.Key+": "+h.Desc)
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// Retrieving marks a query of k chunks as in flight.
func (b *Bar) Retrieving(k int) {
	b.state = StateRetrieving
	b.topK = k
	b.errText = ""
}

// SetResults records a finished retrieval.
func (b *Bar) SetResults(results []domain.RetrievalResult) {
	b.state = StateResults
	b.summary = Summarise(results)
	b.errText = ""
}

// SetError shows err until the next state change.
func (b *Bar) SetError(err error) {
	b.state = StateError
	b.errText = ""
	if err != nil {
		b.errText = err.Error()
	}
}

// SetIndex sets the index shown while idle. Nil means nothing is loaded.
func (b *Bar) SetIndex(stats *domain.IndexStats) {
	b.index = stats
}

// Idle returns to the index summary and forgets the last retrieval.
func (b *Bar) Idle() {
	b.state = StateIdle
	b.summary = Summary{}
	b.errText = ""
}

// State returns the current state.
func (b *Bar) State() State {
	return b.state
}

// Summary returns the last retrieval summary.
func (b *Bar) Summary() Summary {
	return b.summary
}

// SetWidth sets the rendered width.
func (b *Bar) SetWidth(width int) {
	b.width = width
}

// Width returns the rendered width.
func (b *Bar) Width() int {
	return b.width
}

// Bindings returns the hints currently shown.
func (b *Bar) Bindings() []key.Binding {
	if b.state == StateResults && b.summary.Chunks > 0 {
		return b.keymap.ResultsHelp()
	}
	return b.keymap.ShortHelp()
}
