package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// mockSettingsService implements driving.SettingsService for testing.
type mockSettingsService struct {
	settings    domain.AppSettings
	getErr      error
	setErr      error
	validateErr error
	sets        map[string]string
	validated   bool
}

func newMockSettings() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), sets: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.sets[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	return []string{"kb.root", "retrieval.top_k"}
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) ResolveEmbedding() (domain.EmbeddingConfig, error) {
	return domain.ResolveEmbeddingConfig(m.settings.Embedding)
}

func (m *mockSettingsService) ValidateEmbeddingConfig(_ context.Context) error {
	m.validated = true
	return m.validateErr
}

// mockHistoryService implements driving.BuildHistoryService for testing.
type mockHistoryService struct {
	builds []domain.BuildReport
	err    error
}

func (m *mockHistoryService) Recent(_ context.Context, limit int) ([]domain.BuildReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.builds) > limit {
		return m.builds[:limit], nil
	}
	return m.builds, nil
}

func (m *mockHistoryService) Latest(_ context.Context) (*domain.BuildReport, error) {
	if len(m.builds) == 0 {
		return nil, domain.ErrNotFound
	}
	return &m.builds[0], nil
}

// mockBuilder implements driving.IndexBuilder for testing.
type mockBuilder struct {
	report *domain.BuildReport
	err    error
	calls  int
}

func (m *mockBuilder) Build(_ context.Context) (*domain.BuildReport, error) {
	m.calls++
	return m.report, m.err
}

// mockRetriever implements driving.Retriever for testing.
type mockRetriever struct {
	results   []domain.RetrievalResult
	queryErr  error
	reloadErr error
	stats     domain.IndexStats
	lastText  string
	lastK     int
	reloads   int
}

func (m *mockRetriever) Query(_ context.Context, text string, k int) ([]domain.RetrievalResult, error) {
	m.lastText = text
	m.lastK = k
	return m.results, m.queryErr
}

func (m *mockRetriever) Reload(_ context.Context) error {
	m.reloads++
	return m.reloadErr
}

func (m *mockRetriever) Stats() (domain.IndexStats, error) {
	return m.stats, nil
}

// mockWatcher implements driving.IndexWatcher by replaying canned builds.
type mockWatcher struct {
	reports []*domain.BuildReport
	errs    []error
	runErr  error
}

func (m *mockWatcher) Run(_ context.Context, onBuild func(*domain.BuildReport, error)) error {
	for i, r := range m.reports {
		var err error
		if i < len(m.errs) {
			err = m.errs[i]
		}
		onBuild(r, err)
	}
	return m.runErr
}

var (
	_ driving.SettingsService     = (*mockSettingsService)(nil)
	_ driving.BuildHistoryService = (*mockHistoryService)(nil)
	_ driving.IndexBuilder        = (*mockBuilder)(nil)
	_ driving.Retriever           = (*mockRetriever)(nil)
	_ driving.IndexWatcher        = (*mockWatcher)(nil)
)

// testServices bundles the mocks a command test runs against.
type testServices struct {
	settings  *mockSettingsService
	history   *mockHistoryService
	builder   *mockBuilder
	retriever *mockRetriever
	watcher   *mockWatcher
	engineErr error
	opts      Options
	closed    int
}

// setupTestServices installs a bootstrap returning mocks and restores the
// command state when the test ends.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		settings:  newMockSettings(),
		history:   &mockHistoryService{},
		builder:   &mockBuilder{},
		retriever: &mockRetriever{},
		watcher:   &mockWatcher{},
	}

	SetBootstrap(func(opts Options) (*Services, error) {
		ts.opts = opts
		return &Services{
			Settings: ts.settings,
			History:  ts.history,
			Engine: func(context.Context) (*Engine, error) {
				if ts.engineErr != nil {
					return nil, ts.engineErr
				}
				return &Engine{Builder: ts.builder, Retriever: ts.retriever, Watcher: ts.watcher}, nil
			},
			Close: func() error {
				ts.closed++
				return nil
			},
		}, nil
	})

	t.Cleanup(func() {
		SetBootstrap(nil)
		settingsService = nil
		historyService = nil
		engineFactory = nil
		closeServices = nil
		globalOpts = Options{}
		buildJSON, queryJSON, statusJSON = false, false, false
		queryK = 0
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	return ts
}

// executeCommand runs the root command with args and returns its combined output.
func executeCommand(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// executeWithInput runs the root command reading stdin from input.
func executeWithInput(input string, args ...string) (string, error) {
	rootCmd.SetIn(strings.NewReader(input))
	return executeCommand(args...)
}

func strPtr(s string) *string { return &s }
