package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// loadedIndex pairs an index with where and when it was read.
type loadedIndex struct {
	index    *domain.Index
	path     string
	loadedAt time.Time
}

// Retriever answers similarity queries over the artifact at a fixed path.
//
// The loaded index is held behind an atomic pointer. Reload swaps in a new
// value; queries already running keep the index they started with.
type Retriever struct {
	store    driven.IndexStore
	provider driven.EmbeddingProvider
	path     string

	current atomic.Pointer[loadedIndex]
	now     func() time.Time
}

// NewRetriever creates a retriever. Call Load before querying.
// The provider is borrowed; the caller closes it.
func NewRetriever(store driven.IndexStore, provider driven.EmbeddingProvider, path string) *Retriever {
	return &Retriever{
		store:    store,
		provider: provider,
		path:     path,
		now:      time.Now,
	}
}

// Path returns the artifact path this retriever reads.
func (r *Retriever) Path() string {
	return r.path
}

// Load reads the artifact and makes it available to queries.
// On failure any previously loaded index stays in place.
func (r *Retriever) Load(ctx context.Context) error {
	idx, err := r.store.Load(ctx, r.path)
	if err != nil {
		return err
	}

	r.current.Store(&loadedIndex{
		index:    idx,
		path:     r.path,
		loadedAt: r.now(),
	})

	logger.Debug("loaded index %s: %d chunks, %d dimensions", r.path, idx.Len(), idx.Dimensions())
	return nil
}

// Reload reads the artifact again and swaps it in for subsequent queries.
func (r *Retriever) Reload(ctx context.Context) error {
	return r.Load(ctx)
}

// Loaded reports whether an index is available.
func (r *Retriever) Loaded() bool {
	return r.current.Load() != nil
}

// Query embeds text and returns the k most similar chunks.
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]domain.RetrievalResult, error) {
	loaded := r.current.Load()
	if loaded == nil {
		return nil, domain.ErrIndexNotLoaded
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}

	idx := loaded.index
	if idx.Len() == 0 {
		return []domain.RetrievalResult{}, nil
	}

	vectors, err := r.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query embedding, got %d", domain.ErrProvider, len(vectors))
	}

	query := vectors[0]
	if len(query) != idx.Dimensions() {
		return nil, fmt.Errorf("%w: %w: query has %d dimensions, index has %d (was the index built with model %s?)",
			domain.ErrConfiguration, domain.ErrDimensionMismatch, len(query), idx.Dimensions(), r.provider.ModelName())
	}

	return rankByCosine(idx, query, k), nil
}

// Stats describes the currently loaded index.
func (r *Retriever) Stats() (domain.IndexStats, error) {
	loaded := r.current.Load()
	if loaded == nil {
		return domain.IndexStats{}, domain.ErrIndexNotLoaded
	}
	return domain.IndexStats{
		Path:       loaded.path,
		Chunks:     loaded.index.Len(),
		Dimensions: loaded.index.Dimensions(),
		Sources:    loaded.index.Sources(),
		LoadedAt:   loaded.loadedAt,
	}, nil
}
