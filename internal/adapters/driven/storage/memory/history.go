package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// Ensure BuildHistoryStore implements the interface.
var _ driven.BuildHistoryStore = (*BuildHistoryStore)(nil)

// BuildHistoryStore keeps build reports for the lifetime of the process.
type BuildHistoryStore struct {
	mu      sync.RWMutex
	reports []domain.BuildReport // oldest first
}

// NewBuildHistoryStore creates an empty in-memory build history.
func NewBuildHistoryStore() *BuildHistoryStore {
	return &BuildHistoryStore{}
}

// Record appends a build report.
func (s *BuildHistoryStore) Record(_ context.Context, report domain.BuildReport) error {
	if report.ID == "" {
		return fmt.Errorf("%w: build report has no id", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == report.ID {
			return fmt.Errorf("%w: duplicate build id %s", domain.ErrInvalidInput, report.ID)
		}
	}
	s.reports = append(s.reports, report)
	return nil
}

// List returns up to limit reports, newest first.
func (s *BuildHistoryStore) List(_ context.Context, limit int) ([]domain.BuildReport, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.newestFirst()
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered, nil
}

// Latest returns the most recent report, or domain.ErrNotFound.
func (s *BuildHistoryStore) Latest(ctx context.Context) (*domain.BuildReport, error) {
	reports, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, domain.ErrNotFound
	}
	return &reports[0], nil
}

// Prune keeps only the most recent keep reports.
func (s *BuildHistoryStore) Prune(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ordered := s.newestFirst()
	if keep < 0 {
		keep = 0
	}
	if len(ordered) > keep {
		ordered = ordered[:keep]
	}
	slices.Reverse(ordered)
	s.reports = ordered
	return nil
}

// newestFirst orders by start time descending; ties keep insertion order
// reversed, matching the SQLite store. Caller must hold the lock.
func (s *BuildHistoryStore) newestFirst() []domain.BuildReport {
	out := slices.Clone(s.reports)
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b domain.BuildReport) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out
}
