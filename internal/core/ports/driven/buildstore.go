package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// BuildHistoryStore records index build attempts.
type BuildHistoryStore interface {
	// Record appends a build report.
	Record(ctx context.Context, report domain.BuildReport) error

	// List returns the most recent reports, newest first.
	List(ctx context.Context, limit int) ([]domain.BuildReport, error)

	// Latest returns the most recent report, or domain.ErrNotFound.
	Latest(ctx context.Context) (*domain.BuildReport, error)

	// Prune keeps only the most recent keep reports.
	Prune(ctx context.Context, keep int) error
}
