package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

func TestStatusCmd_NoBuilds(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand("status")

	require.NoError(t, err)
	assert.Contains(t, out, "Root:     kb")
	assert.Contains(t, out, "Papers:   "+filepath.Join("kb", "papers"))
	assert.Contains(t, out, "Index:    "+filepath.Join("kb", "db", "index.npz"))
	assert.Contains(t, out, "Provider: local/ollama")
	assert.Contains(t, out, "No builds recorded")
}

func TestStatusCmd_WithBuilds(t *testing.T) {
	ts := setupTestServices(t)
	ok := *testReport()
	failed := *testReport()
	failed.ID = "b-41"
	failed.StartedAt = ok.StartedAt.Add(-time.Hour)
	failed.Status = domain.BuildFailed
	failed.Error = "provider down"
	ts.history.builds = []domain.BuildReport{ok, failed}

	out, err := executeCommand("status")

	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "11 chunks")
	assert.Contains(t, out, "error: provider down")
}

func TestStatusCmd_RemoteProvider(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.settings.Embedding.APIKey = "sk-test"

	out, err := executeCommand("status")

	require.NoError(t, err)
	assert.Contains(t, out, "Provider: remote/openai")
}

func TestStatusCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.history.builds = []domain.BuildReport{*testReport()}

	out, err := executeCommand("status", "--json")
	require.NoError(t, err)

	var got statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "kb", got.KnowledgeRoot)
	assert.Equal(t, "local/ollama", got.Provider)
	require.Len(t, got.Builds, 1)
	assert.Equal(t, "b-42", got.Builds[0].ID)
}

func TestStatusCmd_HistoryError(t *testing.T) {
	ts := setupTestServices(t)
	ts.history.err = errors.New("database is locked")

	_, err := executeCommand("status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestStatusCmd_DoesNotBuildEngine(t *testing.T) {
	ts := setupTestServices(t)
	ts.engineErr = errors.New("no provider")

	_, err := executeCommand("status")

	assert.NoError(t, err)
}
