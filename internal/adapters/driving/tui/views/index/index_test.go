package index

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

type mockBuilder struct {
	report *domain.BuildReport
	err    error
	calls  int
}

func (m *mockBuilder) Build(_ context.Context) (*domain.BuildReport, error) {
	m.calls++
	return m.report, m.err
}

type mockRetriever struct {
	stats     domain.IndexStats
	statsErr  error
	reloadErr error
	reloads   int
}

func (m *mockRetriever) Query(_ context.Context, _ string, _ int) ([]domain.RetrievalResult, error) {
	return nil, nil
}

func (m *mockRetriever) Reload(_ context.Context) error {
	m.reloads++
	return m.reloadErr
}

func (m *mockRetriever) Stats() (domain.IndexStats, error) {
	return m.stats, m.statsErr
}

type mockHistory struct {
	builds []domain.BuildReport
	err    error
}

func (m *mockHistory) Recent(_ context.Context, limit int) ([]domain.BuildReport, error) {
	if len(m.builds) > limit {
		return m.builds[:limit], m.err
	}
	return m.builds, m.err
}

func (m *mockHistory) Latest(_ context.Context) (*domain.BuildReport, error) {
	if len(m.builds) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.builds[0], nil
}

func testStats() domain.IndexStats {
	return domain.IndexStats{
		Path:       "kb/db/index.npz",
		Chunks:     42,
		Dimensions: 384,
		Sources:    7,
		LoadedAt:   time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func testBuilds() []domain.BuildReport {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return []domain.BuildReport{
		{ID: "b2", StartedAt: at, Documents: 7, Chunks: 42, Status: domain.BuildSucceeded},
		{ID: "b1", StartedAt: at.Add(-time.Hour), Status: domain.BuildFailed, Error: "provider down"},
	}
}

func TestNewView(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Equal(t, OptionRebuild, view.SelectedOption())
	assert.Nil(t, view.Stats())
	assert.False(t, view.Ready())
}

func TestView_Load(t *testing.T) {
	retriever := &mockRetriever{stats: testStats()}
	history := &mockHistory{builds: testBuilds()}
	view := NewView(nil, nil, retriever, history)

	msg := view.Init()()

	loaded, ok := msg.(messages.IndexLoaded)
	require.True(t, ok)
	require.NotNil(t, loaded.Stats)
	assert.Equal(t, 42, loaded.Stats.Chunks)
	assert.Len(t, loaded.Builds, 2)
	assert.NoError(t, loaded.Err)
}

func TestView_Load_NotLoadedIsNotAnError(t *testing.T) {
	retriever := &mockRetriever{statsErr: domain.ErrIndexNotLoaded}
	view := NewView(nil, nil, retriever, nil)

	loaded := view.load()().(messages.IndexLoaded)

	assert.Nil(t, loaded.Stats)
	assert.NoError(t, loaded.Err)
}

func TestView_Load_Errors(t *testing.T) {
	statsErr := errors.New("stats failed")
	view := NewView(nil, nil, &mockRetriever{statsErr: statsErr},
		&mockHistory{err: errors.New("history failed")})

	loaded := view.load()().(messages.IndexLoaded)

	// The first failure wins.
	assert.ErrorIs(t, loaded.Err, statsErr)
}

func TestView_Update_IndexLoaded(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.SetDimensions(80, 40)
	stats := testStats()

	_, cmd := view.Update(messages.IndexLoaded{Stats: &stats, Builds: testBuilds()})

	assert.Nil(t, cmd)
	rendered := view.View()
	assert.Contains(t, rendered, "kb/db/index.npz")
	assert.Contains(t, rendered, "42")
	assert.Contains(t, rendered, "384")
	assert.Contains(t, rendered, "2026-05-01 09:00")
	assert.Contains(t, rendered, "failed")
}

func TestView_View_Empty(t *testing.T) {
	view := NewView(nil, nil, nil, nil)
	view.SetDimensions(80, 40)

	rendered := view.View()

	assert.Contains(t, rendered, "No index loaded")
	assert.Contains(t, rendered, "No builds recorded")
	assert.Contains(t, rendered, "Rebuild Now")
}

func TestView_Navigation(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, OptionReload, view.SelectedOption())
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, OptionBack, view.SelectedOption())

	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	view.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, OptionRebuild, view.SelectedOption())
}

func TestView_Rebuild(t *testing.T) {
	report := &domain.BuildReport{ID: "b3", Documents: 3, Chunks: 9, Status: domain.BuildSucceeded}
	builder := &mockBuilder{report: report}
	retriever := &mockRetriever{stats: testStats()}
	view := NewView(nil, builder, retriever, nil)
	view.SetDimensions(80, 40)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, view.Building())
	assert.Contains(t, view.View(), "Building index...")

	// A second request while building is ignored.
	_, again := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Nil(t, again)

	msg := cmd()
	completed, ok := msg.(messages.BuildCompleted)
	require.True(t, ok)
	assert.Equal(t, report, completed.Report)
	assert.Equal(t, 1, builder.calls)

	_, reloadCmd := view.Update(completed)
	assert.False(t, view.Building())
	require.NotNil(t, reloadCmd)
	assert.Contains(t, view.View(), "Indexed 3 documents into 9 chunks")

	reloaded, ok := reloadCmd().(messages.IndexReloaded)
	require.True(t, ok)
	assert.NoError(t, reloaded.Err)
	assert.Equal(t, 1, retriever.reloads)

	_, loadCmd := view.Update(reloaded)
	require.NotNil(t, loadCmd)
	_, ok = loadCmd().(messages.IndexLoaded)
	assert.True(t, ok)
}

func TestView_Rebuild_Failure(t *testing.T) {
	builder := &mockBuilder{
		report: &domain.BuildReport{Status: domain.BuildFailed},
		err:    domain.ErrProvider,
	}
	view := NewView(nil, builder, nil, nil)
	view.SetDimensions(80, 40)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	require.NotNil(t, cmd)

	_, next := view.Update(cmd())

	assert.Nil(t, next)
	assert.ErrorIs(t, view.Err(), domain.ErrProvider)
	assert.NotContains(t, view.View(), "Indexed")
}

func TestView_Rebuild_NoBuilder(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	_, ok := msg.(messages.ErrorOccurred)
	assert.True(t, ok)

	view.Update(msg)
	assert.False(t, view.Building())
	assert.Error(t, view.Err())
}

func TestView_Reload(t *testing.T) {
	retriever := &mockRetriever{reloadErr: domain.ErrCorruptIndex}
	view := NewView(nil, nil, retriever, nil)
	view.Update(tea.KeyMsg{Type: tea.KeyDown})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd().(messages.IndexReloaded)
	assert.ErrorIs(t, msg.Err, domain.ErrCorruptIndex)

	view.Update(msg)
	assert.ErrorIs(t, view.Err(), domain.ErrCorruptIndex)
}

func TestView_Back(t *testing.T) {
	view := NewView(nil, nil, nil, nil)

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())

	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd = view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}
