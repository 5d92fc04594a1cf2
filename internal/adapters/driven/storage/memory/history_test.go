package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

func build(id string, started time.Time) domain.BuildReport {
	return domain.BuildReport{ID: id, StartedAt: started, Status: domain.BuildSucceeded}
}

func TestBuildHistoryStore_RecordAndLatest(t *testing.T) {
	store := NewBuildHistoryStore()
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	base := time.Now()
	require.NoError(t, store.Record(ctx, build("a", base)))
	require.NoError(t, store.Record(ctx, build("b", base.Add(time.Second))))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", latest.ID)
}

func TestBuildHistoryStore_Record_Invalid(t *testing.T) {
	store := NewBuildHistoryStore()
	ctx := context.Background()

	assert.ErrorIs(t, store.Record(ctx, domain.BuildReport{}), domain.ErrInvalidInput)

	require.NoError(t, store.Record(ctx, build("dup", time.Now())))
	assert.ErrorIs(t, store.Record(ctx, build("dup", time.Now())), domain.ErrInvalidInput)
}

func TestBuildHistoryStore_List(t *testing.T) {
	store := NewBuildHistoryStore()
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Recorded out of order; listing sorts by start time.
	require.NoError(t, store.Record(ctx, build("b", base.Add(time.Minute))))
	require.NoError(t, store.Record(ctx, build("a", base)))
	require.NoError(t, store.Record(ctx, build("c", base.Add(2*time.Minute))))

	got, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	_, err = store.List(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuildHistoryStore_List_SameStartTime(t *testing.T) {
	store := NewBuildHistoryStore()
	ctx := context.Background()

	at := time.Now()
	require.NoError(t, store.Record(ctx, build("first", at)))
	require.NoError(t, store.Record(ctx, build("second", at)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.ID)
}

func TestBuildHistoryStore_Prune(t *testing.T) {
	store := NewBuildHistoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.Record(ctx, build(id, base.Add(time.Duration(i)*time.Second))))
	}

	require.NoError(t, store.Prune(ctx, 2))
	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "c", got[1].ID)

	// Order is preserved for later records.
	require.NoError(t, store.Record(ctx, build("e", base.Add(time.Minute))))
	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e", latest.ID)

	require.NoError(t, store.Prune(ctx, -1))
	got, err = store.List(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
