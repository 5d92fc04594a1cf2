package cli

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/tui"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// runProgram runs the bubbletea program. Replaced in tests.
var runProgram = func(app *tui.App) error {
	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for kbindex.

The TUI lets you ask questions against the index, read the matching
passages, and rebuild the index without leaving the terminal.

Controls:
  ↑/k, ↓/j - Navigate results
  Enter    - Ask / Expand passage
  n        - New question
  r        - Rebuild (index view)
  Esc      - Back / Cancel
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().Bool("watch", false, "rebuild and reload the index when documents change")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("getting watch flag: %w", err)
	}

	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	// The index view offers a rebuild, so a missing artifact is not fatal.
	if err := engine.Retriever.Reload(cmd.Context()); err != nil {
		logger.Warn("%v", indexLoadError(err))
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Watch mode is long-running, needs the rebuild loop in the background.
	if watch && engine.Watcher != nil {
		go func() {
			if err := engine.Watcher.Run(ctx, quietWatchBuild); err != nil {
				logger.Debug("watcher stopped: %v", err)
			}
		}()
	}

	ports := &tui.Ports{
		Retriever: engine.Retriever,
		Builder:   engine.Builder,
		History:   historyService,
		TopK:      resolveTopK(0),
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	if err := runProgram(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// quietWatchBuild keeps background builds off the terminal the TUI owns.
func quietWatchBuild(report *domain.BuildReport, err error) {
	if err != nil {
		logger.Debug("rebuild failed: %v", err)
		return
	}
	logger.Debug("rebuilt index: %d chunks", report.Chunks)
}
