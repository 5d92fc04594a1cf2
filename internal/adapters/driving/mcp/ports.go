package mcp

import (
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retriever answers retrieve tool calls. Required.
	Retriever driving.Retriever

	// History provides recent builds for the builds resource. Optional.
	History driving.BuildHistoryService

	// DefaultK is used when a call does not specify k.
	DefaultK int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retriever == nil {
		return ErrMissingRetriever
	}
	return nil
}

func (p *Ports) defaultK() int {
	if p.DefaultK > 0 {
		return p.DefaultK
	}
	return domain.DefaultTopK
}
