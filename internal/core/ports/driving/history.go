package driving

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// BuildHistoryService exposes past index builds.
type BuildHistoryService interface {
	// Recent returns up to limit builds, newest first.
	Recent(ctx context.Context, limit int) ([]domain.BuildReport, error)

	// Latest returns the most recent build or domain.ErrNotFound.
	Latest(ctx context.Context) (*domain.BuildReport, error)
}
