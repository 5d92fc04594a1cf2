package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

var buildJSON bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the index from the knowledge directory",
	Long: `Loads every document under the papers directory, splits it into chunks,
embeds all chunks and writes a new index artifact.

The build is all or nothing: if embedding fails the previous artifact is
left untouched.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the build report as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	if !buildJSON {
		cmd.Println("Building index...")
	}

	report, buildErr := engine.Builder.Build(cmd.Context())
	if buildJSON && report != nil {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	}
	if buildErr != nil {
		return fmt.Errorf("build failed: %w", buildErr)
	}

	if !buildJSON {
		printBuildReport(cmd, report)
	}
	return nil
}

// printBuildReport prints a human-readable summary of a build.
func printBuildReport(cmd *cobra.Command, report *domain.BuildReport) {
	if report == nil {
		return
	}
	cmd.Printf("Indexed %d documents into %d chunks", report.Documents, report.Chunks)
	if report.Dimensions > 0 {
		cmd.Printf(" (%d dimensions)", report.Dimensions)
	}
	cmd.Printf(" in %s\n", report.Duration().Round(time.Millisecond))
	cmd.Printf("  Artifact: %s\n", report.ArtifactPath)
	cmd.Printf("  Provider: %s (%s)\n", report.Provider, report.Model)
	cmd.Printf("  Build:    %s\n", report.ID)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
