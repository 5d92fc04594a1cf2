package driving

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// IndexBuilder rebuilds the index artifact from the knowledge directory.
type IndexBuilder interface {
	// Build loads, chunks and embeds the whole corpus and writes a new artifact.
	// If embedding fails nothing is written.
	Build(ctx context.Context) (*domain.BuildReport, error)
}

// Retriever answers similarity queries against a loaded index.
type Retriever interface {
	// Query embeds text and returns the k most similar chunks.
	// k larger than the index returns every chunk.
	Query(ctx context.Context, text string, k int) ([]domain.RetrievalResult, error)

	// Reload reads the artifact again and swaps it in for subsequent queries.
	Reload(ctx context.Context) error

	// Stats describes the currently loaded index.
	Stats() (domain.IndexStats, error)
}

// IndexWatcher keeps the index in step with the knowledge directory.
type IndexWatcher interface {
	// Run builds once, then rebuilds after every batch of changes until ctx
	// is cancelled. onBuild, if non-nil, observes each build outcome.
	Run(ctx context.Context, onBuild func(*domain.BuildReport, error)) error
}
