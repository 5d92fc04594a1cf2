package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbindex/internal/adapters/driving/mcp"
	"github.com/custodia-labs/kbindex/internal/connectors/filesystem"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

var (
	queryK    int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the index",
	Long: `Embeds the query text and returns the most similar chunks from the index,
ranked by cosine similarity. Without arguments the query is read from stdin.`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0, "number of chunks to return (default retrieval.top_k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	text, err := queryText(cmd, args)
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("query text is empty")
	}

	engine, err := loadEngine(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := engine.Retriever.Reload(ctx); err != nil {
		return indexLoadError(err)
	}

	results, err := engine.Retriever.Query(ctx, text, resolveTopK(queryK))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return printJSON(cmd, mcp.NewRetrieveOutput(results))
	}
	outputQueryTable(cmd, results)
	return nil
}

// queryText joins the arguments, or reads all of stdin when there are none.
func queryText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read query from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// resolveTopK returns k if set, else the configured default.
func resolveTopK(k int) int {
	if k > 0 {
		return k
	}
	if settingsService != nil {
		if settings, err := settingsService.Get(); err == nil && settings.Retrieval.TopK > 0 {
			return settings.Retrieval.TopK
		}
	}
	return domain.DefaultTopK
}

// knowledgeRoot returns the configured knowledge root, or "" if unknown.
func knowledgeRoot() string {
	if settingsService == nil {
		return ""
	}
	settings, err := settingsService.Get()
	if err != nil {
		return ""
	}
	return settings.KnowledgeBase.Root
}

// indexLoadError adds a hint when the artifact is missing or unreadable.
func indexLoadError(err error) error {
	if errors.Is(err, domain.ErrCorruptIndex) {
		return fmt.Errorf("load index: %w (run 'kbindex build' first)", err)
	}
	return fmt.Errorf("load index: %w", err)
}

func outputQueryTable(cmd *cobra.Command, results []domain.RetrievalResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	width := outputWidth(cmd)
	root := knowledgeRoot()

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		m := results[i].Metadata
		title := m.Source
		if m.Title != nil && *m.Title != "" {
			title = *m.Title
		}

		cmd.Printf("  [%d] %s (%.4f)\n", i+1, title, results[i].Score)
		cmd.Printf("      Source: %s#%d\n", m.Source, m.ChunkID)
		if root != "" {
			cmd.Printf("      File: %s\n", filesystem.ResolveSourcePath(root, m.Source))
		}
		if preview := previewLine(m.TextPreview, width-6); preview != "" {
			cmd.Printf("      %s\n", preview)
		}
		cmd.Println()
	}
}

// outputWidth returns the terminal width, or 0 when output is not a terminal.
func outputWidth(cmd *cobra.Command) int {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// previewLine flattens text to one line, truncated to width runes if width > 0.
func previewLine(text string, width int) string {
	line := strings.Join(strings.Fields(text), " ")
	runes := []rune(line)
	if width <= 3 || len(runes) <= width {
		return line
	}
	return string(runes[:width-3]) + "..."
}
