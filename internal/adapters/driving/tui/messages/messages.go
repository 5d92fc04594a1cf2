// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// QueryChanged is sent when the query input changes.
type QueryChanged struct {
	Query string
}

// QueryRequested is a command to run a retrieval query.
type QueryRequested struct {
	Query string
	K     int
}

// QueryCompleted carries ranked chunks back to the model.
type QueryCompleted struct {
	Results []domain.RetrievalResult
	Err     error
}

// ResultSelected is sent when a result is selected.
type ResultSelected struct {
	Index int
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewSearch is the query input and results view.
	ViewSearch
	// ViewIndex shows index statistics and build history.
	ViewIndex
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewSearch:
		return "search"
	case ViewIndex:
		return "index"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// IndexLoaded carries the loaded index statistics and recent builds.
// Stats is nil when no index is loaded.
type IndexLoaded struct {
	Stats  *domain.IndexStats
	Builds []domain.BuildReport
	Err    error
}

// BuildCompleted signals a rebuild finished.
type BuildCompleted struct {
	Report *domain.BuildReport
	Err    error
}

// IndexReloaded signals the retriever re-read the artifact.
type IndexReloaded struct {
	Err error
}
