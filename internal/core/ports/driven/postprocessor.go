package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// PostProcessor splits a document into chunks.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the document's chunks with chunk ids starting at 0.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
