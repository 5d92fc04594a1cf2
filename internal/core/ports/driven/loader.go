package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// DocumentLoader reads the knowledge directory and emits raw Documents.
type DocumentLoader interface {
	// Load returns every indexable document. Order follows filesystem
	// traversal; callers must not rely on it across runs.
	Load(ctx context.Context) ([]domain.Document, error)
}
