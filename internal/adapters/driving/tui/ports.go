// Package tui provides an interactive terminal user interface for kbindex.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces used by the TUI.
type Ports struct {
	// Retriever answers queries against the loaded index.
	Retriever driving.Retriever

	// Builder rebuilds the index from the index view. Optional.
	Builder driving.IndexBuilder

	// History lists recent builds. Optional.
	History driving.BuildHistoryService

	// TopK is the number of chunks returned per query; 0 uses the default.
	TopK int
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(
	retriever driving.Retriever,
	builder driving.IndexBuilder,
	history driving.BuildHistoryService,
) *Ports {
	return &Ports{
		Retriever: retriever,
		Builder:   builder,
		History:   history,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	if p.TopK < 0 {
		return ErrInvalidPorts
	}
	return nil
}
