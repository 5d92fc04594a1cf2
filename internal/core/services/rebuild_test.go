package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// mockChangeSource implements driven.ChangeSource with a test-fed channel.
type mockChangeSource struct {
	batches chan []string
	err     error
	closed  bool
}

func (m *mockChangeSource) Changes(_ context.Context) (<-chan []string, error) {
	return m.batches, m.err
}

func (m *mockChangeSource) Close() error {
	m.closed = true
	return nil
}

type buildLog struct {
	mu      sync.Mutex
	reports []*domain.BuildReport
	errs    []error
}

func (b *buildLog) record(r *domain.BuildReport, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, r)
	b.errs = append(b.errs, err)
}

func (b *buildLog) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reports)
}

func TestRebuildLoop_Run(t *testing.T) {
	loader := &mockLoader{docs: corpus()}
	store := newMockIndexStore()
	provider := newMockProvider(4)
	builder := NewIndexBuilder(loader, &mockChunker{}, provider, store, "idx")
	retriever := NewRetriever(store, provider, "idx")
	source := &mockChangeSource{batches: make(chan []string)}
	loop := NewRebuildLoop(source, builder, retriever)

	ctx, cancel := context.WithCancel(context.Background())
	log := &buildLog{}
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, log.record) }()

	require.Eventually(t, func() bool { return log.count() == 1 }, time.Second, 5*time.Millisecond)
	stats, err := retriever.Stats()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Chunks)

	loader.docs = corpus()[:1]
	source.batches <- []string{"papers/b.pdf"}
	require.Eventually(t, func() bool { return log.count() == 2 }, time.Second, 5*time.Millisecond)

	stats, err = retriever.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Chunks)

	cancel()
	assert.NoError(t, <-done)
	assert.True(t, source.closed)
	assert.NoError(t, log.errs[0])
	assert.NoError(t, log.errs[1])
}

func TestRebuildLoop_BuildFailureKeepsRunning(t *testing.T) {
	provider := newMockProvider(4)
	provider.err = domain.ErrProvider
	builder := NewIndexBuilder(&mockLoader{docs: corpus()}, &mockChunker{}, provider, newMockIndexStore(), "idx")
	source := &mockChangeSource{batches: make(chan []string, 1)}
	loop := NewRebuildLoop(source, builder, nil)

	log := &buildLog{}
	source.batches <- []string{"a.md"}
	close(source.batches)

	err := loop.Run(context.Background(), log.record)

	require.NoError(t, err)
	require.Equal(t, 2, log.count())
	assert.ErrorIs(t, log.errs[0], domain.ErrProvider)
	assert.Equal(t, domain.BuildFailed, log.reports[1].Status)
}

func TestRebuildLoop_SourceError(t *testing.T) {
	source := &mockChangeSource{err: errors.New("inotify limit")}
	loop := NewRebuildLoop(source, nil, nil)

	err := loop.Run(context.Background(), nil)

	assert.ErrorContains(t, err, "inotify limit")
}
