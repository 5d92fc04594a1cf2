package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// stubProgram replaces the bubbletea runner for the duration of a test.
func stubProgram(t *testing.T, run func(*tui.App) error) {
	t.Helper()
	original := runProgram
	runProgram = run
	t.Cleanup(func() { runProgram = original })
}

func TestTUICmd_Exists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "tui" {
			found = true
			break
		}
	}
	assert.True(t, found, "tui command should be registered")
}

func TestTUICmd_Flags(t *testing.T) {
	assert.NotNil(t, tuiCmd.Flags().Lookup("watch"))
	assert.NotEmpty(t, tuiCmd.Long)
}

func TestTUICmd_RunsApp(t *testing.T) {
	ts := setupTestServices(t)
	ts.settings.settings.Retrieval.TopK = 3
	var started *tui.App
	stubProgram(t, func(app *tui.App) error {
		started = app
		return nil
	})

	_, err := executeCommand("tui")

	require.NoError(t, err)
	require.NotNil(t, started)
	assert.Equal(t, 1, ts.retriever.reloads)
}

func TestTUICmd_MissingIndexIsNotFatal(t *testing.T) {
	ts := setupTestServices(t)
	ts.retriever.reloadErr = domain.ErrCorruptIndex
	ran := false
	stubProgram(t, func(*tui.App) error {
		ran = true
		return nil
	})

	_, err := executeCommand("tui")

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestTUICmd_ProgramError(t *testing.T) {
	setupTestServices(t)
	stubProgram(t, func(*tui.App) error {
		return assert.AnError
	})

	_, err := executeCommand("tui")

	assert.ErrorIs(t, err, assert.AnError)
}

func TestTUICmd_EngineError(t *testing.T) {
	ts := setupTestServices(t)
	ts.engineErr = domain.ErrEmbeddingUnavailable
	stubProgram(t, func(*tui.App) error {
		t.Fatal("program should not start")
		return nil
	})

	_, err := executeCommand("tui")

	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
