package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure RebuildLoop implements the interface.
var _ driving.IndexWatcher = (*RebuildLoop)(nil)

// RebuildLoop runs a full rebuild whenever the corpus changes.
// Builds run one at a time; changes arriving during a build are coalesced
// into the next batch by the change source.
type RebuildLoop struct {
	source    driven.ChangeSource
	builder   driving.IndexBuilder
	retriever driving.Retriever
}

// NewRebuildLoop creates a rebuild loop. retriever may be nil; when set it
// is reloaded after every successful build.
func NewRebuildLoop(source driven.ChangeSource, builder driving.IndexBuilder, retriever driving.Retriever) *RebuildLoop {
	return &RebuildLoop{
		source:    source,
		builder:   builder,
		retriever: retriever,
	}
}

// Run builds once, then rebuilds after every batch of changes until ctx is
// cancelled. Cancellation is not an error. Failed builds are reported to
// onBuild and the loop keeps going.
func (l *RebuildLoop) Run(ctx context.Context, onBuild func(*domain.BuildReport, error)) error {
	batches, err := l.source.Changes(ctx)
	if err != nil {
		return fmt.Errorf("watch knowledge directory: %w", err)
	}
	defer l.source.Close()

	l.rebuild(ctx, onBuild)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			logger.Info("%d file(s) changed, rebuilding", len(batch))
			l.rebuild(ctx, onBuild)
		}
	}
}

func (l *RebuildLoop) rebuild(ctx context.Context, onBuild func(*domain.BuildReport, error)) {
	report, err := l.builder.Build(ctx)
	if err == nil && l.retriever != nil {
		if rerr := l.retriever.Reload(ctx); rerr != nil {
			err = fmt.Errorf("reload index: %w", rerr)
		}
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return
	}
	if onBuild != nil {
		onBuild(report, err)
	}
}
