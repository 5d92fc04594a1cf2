package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild the index whenever the knowledge directory changes",
	Long: `Builds the index once, then watches the papers directory and runs a full
rebuild after each burst of changes. Press Ctrl+C to stop.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}
	if engine.Watcher == nil {
		return errors.New("watcher not configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for changes (Ctrl+C to stop)...")
	if err := engine.Watcher.Run(ctx, func(report *domain.BuildReport, err error) {
		printWatchBuild(cmd, report, err)
	}); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	cmd.Println("Stopped.")
	return nil
}

func printWatchBuild(cmd *cobra.Command, report *domain.BuildReport, err error) {
	if err != nil {
		cmd.PrintErrf("Build failed: %v\n", err)
		return
	}
	printBuildReport(cmd, report)
}
