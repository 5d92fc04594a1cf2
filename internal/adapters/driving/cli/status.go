package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// statusBuildLimit is how many past builds status lists.
const statusBuildLimit = 5

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index and build status",
	Long: `Shows where the knowledge base and index live and lists the most recent
builds recorded in the build history.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the JSON shape of the status command.
type statusOutput struct {
	KnowledgeRoot string               `json:"knowledge_root"`
	PapersDir     string               `json:"papers_dir"`
	IndexPath     string               `json:"index_path"`
	Provider      string               `json:"provider"`
	Builds        []domain.BuildReport `json:"builds"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	out := statusOutput{
		KnowledgeRoot: settings.KnowledgeBase.Root,
		PapersDir:     settings.KnowledgeBase.PapersPath(),
		IndexPath:     settings.KnowledgeBase.IndexFile(),
		Builds:        []domain.BuildReport{},
	}

	if cfg, err := domain.ResolveEmbeddingConfig(settings.Embedding); err == nil {
		out.Provider = cfg.Describe()
	} else {
		out.Provider = fmt.Sprintf("invalid (%v)", err)
	}

	if historyService != nil {
		builds, err := historyService.Recent(cmd.Context(), statusBuildLimit)
		if err != nil {
			return fmt.Errorf("failed to read build history: %w", err)
		}
		out.Builds = append(out.Builds, builds...)
	}

	if statusJSON {
		return printJSON(cmd, out)
	}

	cmd.Println("Knowledge Base")
	cmd.Println("==============")
	cmd.Printf("  Root:     %s\n", out.KnowledgeRoot)
	cmd.Printf("  Papers:   %s\n", out.PapersDir)
	cmd.Printf("  Index:    %s\n", out.IndexPath)
	cmd.Printf("  Provider: %s\n", out.Provider)
	cmd.Println()

	cmd.Println("Recent Builds")
	cmd.Println("=============")
	if len(out.Builds) == 0 {
		cmd.Println("  No builds recorded. Run 'kbindex build' to create the index.")
		return nil
	}
	for i := range out.Builds {
		b := out.Builds[i]
		cmd.Printf("  %s  %-9s  %4d docs  %5d chunks  %s\n",
			b.StartedAt.Local().Format(time.DateTime), b.Status, b.Documents, b.Chunks,
			b.Duration().Round(time.Millisecond))
		if b.Error != "" {
			cmd.Printf("      error: %s\n", b.Error)
		}
	}
	return nil
}
