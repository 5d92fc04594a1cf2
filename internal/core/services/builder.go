package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure IndexBuilder implements the interface.
var _ driving.IndexBuilder = (*IndexBuilder)(nil)

// HistoryRetention is the number of build reports kept after each build.
const HistoryRetention = 100

// IndexBuilder rebuilds the index artifact from the knowledge directory.
type IndexBuilder struct {
	loader   driven.DocumentLoader
	chunker  driven.PostProcessor
	provider driven.EmbeddingProvider
	store    driven.IndexStore
	path     string

	history       driven.BuildHistoryStore
	providerLabel string
	now           func() time.Time

	mu sync.Mutex
}

// BuilderOption configures an IndexBuilder.
type BuilderOption func(*IndexBuilder)

// WithHistory records every build attempt in store.
func WithHistory(store driven.BuildHistoryStore) BuilderOption {
	return func(b *IndexBuilder) {
		b.history = store
	}
}

// WithProviderLabel sets the provider description stored in build reports.
func WithProviderLabel(label string) BuilderOption {
	return func(b *IndexBuilder) {
		b.providerLabel = label
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *IndexBuilder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewIndexBuilder creates a builder writing to path.
// The provider is borrowed; the caller closes it.
func NewIndexBuilder(
	loader driven.DocumentLoader,
	chunker driven.PostProcessor,
	provider driven.EmbeddingProvider,
	store driven.IndexStore,
	path string,
	opts ...BuilderOption,
) *IndexBuilder {
	b := &IndexBuilder{
		loader:   loader,
		chunker:  chunker,
		provider: provider,
		store:    store,
		path:     path,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the artifact path.
func (b *IndexBuilder) Path() string {
	return b.path
}

// Build loads, chunks and embeds the whole corpus and writes a new artifact.
//
// The returned report is non-nil whenever a build was attempted, including
// failed ones. A concurrent call returns domain.ErrBuildInProgress and a nil
// report.
func (b *IndexBuilder) Build(ctx context.Context) (*domain.BuildReport, error) {
	if !b.mu.TryLock() {
		return nil, domain.ErrBuildInProgress
	}
	defer b.mu.Unlock()

	report := &domain.BuildReport{
		ID:           uuid.NewString(),
		StartedAt:    b.now(),
		Provider:     b.providerLabel,
		Model:        b.provider.ModelName(),
		ArtifactPath: b.path,
	}

	err := b.build(ctx, report)

	report.FinishedAt = b.now()
	if err != nil {
		report.Status = domain.BuildFailed
		report.Error = err.Error()
	} else {
		report.Status = domain.BuildSucceeded
	}
	b.record(report)

	return report, err
}

func (b *IndexBuilder) build(ctx context.Context, report *domain.BuildReport) error {
	logger.Section("Build")

	docs, err := b.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}
	report.Documents = len(docs)
	logger.Info("Loaded %d documents", len(docs))

	var (
		texts     []string
		metadatas []domain.ChunkMetadata
	)
	for i := range docs {
		chunks, err := b.chunker.Process(ctx, &docs[i])
		if err != nil {
			return fmt.Errorf("chunk %s: %w", docs[i].Source, err)
		}
		for _, c := range chunks {
			texts = append(texts, c.Text)
			metadatas = append(metadatas, c.Metadata())
		}
	}
	report.Chunks = len(texts)
	logger.Info("Split into %d chunks", len(texts))

	var embeddings [][]float32
	if len(texts) > 0 {
		embeddings, err = b.provider.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("%w: %d embeddings for %d chunks", domain.ErrProvider, len(embeddings), len(texts))
		}
	}

	idx, err := domain.NewIndex(embeddings, metadatas)
	if err != nil {
		return fmt.Errorf("assemble index: %w", err)
	}
	report.Dimensions = idx.Dimensions()

	if err := b.store.Save(ctx, b.path, idx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	logger.WithFields(logger.Fields{
		"documents":  report.Documents,
		"chunks":     report.Chunks,
		"dimensions": report.Dimensions,
		"path":       b.path,
	}).Info("index written")

	return nil
}

// record appends the report to history. History failures never fail a build.
func (b *IndexBuilder) record(report *domain.BuildReport) {
	if b.history == nil {
		return
	}

	// Independent of the build context so cancelled builds are still recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.history.Record(ctx, *report); err != nil {
		logger.Warn("could not record build %s: %v", report.ID, err)
		return
	}
	if err := b.history.Prune(ctx, HistoryRetention); err != nil {
		logger.Warn("could not prune build history: %v", err)
	}
}
