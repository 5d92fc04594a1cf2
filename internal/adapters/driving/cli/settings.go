package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the knowledge base location, chunking, the embedding
provider and retrieval defaults.

Use subcommands to change individual keys or run the embedding wizard.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long: `Set a single configuration key. Lists take comma separated values.

Run 'kbindex settings keys' to list the recognised keys.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runSettingsKeys,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Interactively choose between a remote embedding API and a local Ollama
model, then check that the provider is reachable.`,
	RunE: runSettingsEmbedding,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	kb := settings.KnowledgeBase
	cmd.Println("[Knowledge Base]")
	cmd.Printf("  Root: %s\n", kb.Root)
	cmd.Printf("  Papers: %s\n", kb.PapersPath())
	cmd.Printf("  Index: %s\n", kb.IndexFile())
	cmd.Printf("  History: %s\n", kb.HistoryPath())
	cmd.Printf("  Guardrails: %s\n", strings.Join(kb.Guardrails, ", "))
	cmd.Printf("  Ignore: %s\n", strings.Join(kb.Ignore, ", "))
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chars: %d\n", settings.Chunker.MaxChars)
	cmd.Println()

	emb := settings.Embedding
	cmd.Println("[Embedding]")
	cmd.Printf("  Remote backend: %s\n", emb.Backend.Description())
	if emb.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(emb.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	cmd.Printf("  Local model: %s\n", emb.LocalModel)

	cfg, err := settingsService.ResolveEmbedding()
	if err != nil {
		cmd.Printf("  Active: invalid\n")
		cmd.Println()
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'kbindex settings embedding' to fix configuration issues.")
		return nil
	}
	switch c := cfg.(type) {
	case domain.RemoteEmbedding:
		cmd.Printf("  Active: %s, model %s, batch %d, concurrency %d\n",
			c.Describe(), c.Model, c.BatchSize, c.Concurrency)
		if c.RequestsPerSecond > 0 {
			cmd.Printf("  Rate limit: %.2f requests/s\n", c.RequestsPerSecond)
		}
		if c.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", c.BaseURL)
		}
	case domain.LocalEmbedding:
		cmd.Printf("  Active: %s, model %s\n", c.Describe(), c.ModelID)
		if c.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", c.BaseURL)
		}
	}
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if strings.HasSuffix(key, "api_key") {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, key := range settingsService.Keys() {
		cmd.Println(key)
	}
	return nil
}

// embeddingChoices are the wizard's provider options. The empty backend is
// the local model.
var embeddingChoices = []domain.RemoteBackend{"", domain.RemoteBackendOpenAI, domain.RemoteBackendGemini}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())

	cmd.Println("Select Embedding Provider")
	for i, b := range embeddingChoices {
		desc := "Local Ollama model (no API key)"
		if b != "" {
			desc = b.Description()
		}
		cmd.Printf("  %d. %s\n", i+1, desc)
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(embeddingChoices), 1)
	backend := embeddingChoices[idx-1]

	var err error
	if backend == "" {
		err = configureLocalEmbedding(cmd, reader)
	} else {
		err = configureRemoteEmbedding(cmd, reader, backend)
	}
	if err != nil {
		return err
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(cmd.Context()); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func configureLocalEmbedding(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Printf("Enter model name [%s]: ", domain.DefaultLocalModel)
	model := readLine(reader)
	if model == "" {
		model = domain.DefaultLocalModel
	}
	cmd.Print("Enter Ollama URL (blank for default): ")
	baseURL := readLine(reader)

	if err := settingsService.Set("embedding.local_model", model); err != nil {
		return fmt.Errorf("failed to configure local model: %w", err)
	}
	if err := settingsService.Set("embedding.local_base_url", baseURL); err != nil {
		return fmt.Errorf("failed to configure local model: %w", err)
	}
	// The local model is only selected while no remote key is stored.
	if err := settingsService.Set("embedding.api_key", ""); err != nil {
		return fmt.Errorf("failed to clear API key: %w", err)
	}

	cmd.Printf("Embedding provider configured: local (%s)\n", model)
	return nil
}

func configureRemoteEmbedding(cmd *cobra.Command, reader *bufio.Reader, backend domain.RemoteBackend) error {
	cmd.Printf("Enter model name [%s]: ", backend.DefaultModel())
	model := readLine(reader)

	cmd.Printf("Enter API key (blank to use %s): ", backend.CredentialEnv())
	apiKey := readPassword(reader)
	cmd.Println()
	if apiKey == "" {
		if _, ok := os.LookupEnv(backend.CredentialEnv()); !ok {
			return fmt.Errorf("API key is required for %s", backend.Description())
		}
	}

	if err := settingsService.Set("embedding.backend", backend.String()); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	if err := settingsService.Set("embedding.model", model); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	if apiKey != "" {
		if err := settingsService.Set("embedding.api_key", apiKey); err != nil {
			return fmt.Errorf("failed to configure embedding provider: %w", err)
		}
	}

	if model == "" {
		model = backend.DefaultModel()
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", backend.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads a secret without echo when stdin is a terminal.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
