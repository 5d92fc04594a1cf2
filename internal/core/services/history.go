package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// Ensure BuildHistoryService implements the interface.
var _ driving.BuildHistoryService = (*BuildHistoryService)(nil)

// BuildHistoryService exposes past index builds.
type BuildHistoryService struct {
	store driven.BuildHistoryStore
}

// NewBuildHistoryService creates a new build history service.
func NewBuildHistoryService(store driven.BuildHistoryStore) *BuildHistoryService {
	return &BuildHistoryService{store: store}
}

// Recent returns up to limit builds, newest first.
func (s *BuildHistoryService) Recent(ctx context.Context, limit int) ([]domain.BuildReport, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	return s.store.List(ctx, limit)
}

// Latest returns the most recent build or domain.ErrNotFound.
func (s *BuildHistoryService) Latest(ctx context.Context) (*domain.BuildReport, error) {
	return s.store.Latest(ctx)
}
