package mcp

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	results  []domain.RetrievalResult
	stats    domain.IndexStats
	err      error
	statsErr error
	lastK    int
}

func (m *mockRetriever) Query(_ context.Context, _ string, k int) ([]domain.RetrievalResult, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	if k < len(m.results) {
		return m.results[:k], nil
	}
	return m.results, nil
}

func (m *mockRetriever) Reload(_ context.Context) error {
	return m.err
}

func (m *mockRetriever) Stats() (domain.IndexStats, error) {
	return m.stats, m.statsErr
}

// mockHistoryService is a mock implementation of driving.BuildHistoryService.
type mockHistoryService struct {
	builds []domain.BuildReport
	err    error
}

func (m *mockHistoryService) Recent(_ context.Context, limit int) ([]domain.BuildReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit < len(m.builds) {
		return m.builds[:limit], nil
	}
	return m.builds, nil
}

func (m *mockHistoryService) Latest(_ context.Context) (*domain.BuildReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.builds) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.builds[0], nil
}
