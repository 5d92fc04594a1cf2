// Package cli provides the kbindex command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// version is set at build time via SetVersion.
var version = "dev"

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Engine holds the services that need an embedding provider.
type Engine struct {
	Builder   driving.IndexBuilder
	Retriever driving.Retriever
	Watcher   driving.IndexWatcher
}

// EngineFactory constructs the Engine on first use. Commands that never
// embed text do not call it, so they work without a reachable provider.
type EngineFactory func(ctx context.Context) (*Engine, error)

// Options carries the global flags into the bootstrap function.
type Options struct {
	ConfigPath    string
	KnowledgeRoot string
	Verbose       bool
}

// Services are the driving ports a command runs against.
type Services struct {
	Settings driving.SettingsService
	History  driving.BuildHistoryService
	Engine   EngineFactory

	// Close releases everything the bootstrap opened. May be nil.
	Close func() error
}

// Bootstrap builds the services for one invocation.
type Bootstrap func(opts Options) (*Services, error)

// Services for the current invocation.
var (
	settingsService driving.SettingsService
	historyService  driving.BuildHistoryService
	engineFactory   EngineFactory
)

var (
	bootstrap     Bootstrap
	closeServices func() error
	globalOpts    Options
)

// noServices marks commands that run without bootstrapping.
const noServices = "no-services"

// SetBootstrap sets the function that wires services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

var rootCmd = &cobra.Command{
	Use:   "kbindex",
	Short: "Build and query a knowledge-base vector index",
	Long: `kbindex turns a directory of markdown notes and PDFs into a vector index
for retrieval-augmented assistants.

Documents under <kb>/papers are split into paragraph chunks, embedded with
a remote API (OpenAI, Gemini) when a credential is configured or a local
Ollama model otherwise, and written to <kb>/db/index.npz.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&globalOpts.Verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&globalOpts.KnowledgeRoot, "kb", "", "knowledge root directory (overrides kb.root)")
	flags.StringVar(&globalOpts.ConfigPath, "config", "", "config file path (default ~/.kbindex/config.toml)")
}

// Execute runs the root command and releases any services it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := teardownServices(); closeErr != nil {
		logger.Warn("closing services: %v", closeErr)
	}
	return err
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(globalOpts.Verbose)

	if bootstrap == nil || cmd.Annotations[noServices] != "" {
		return nil
	}

	services, err := bootstrap(globalOpts)
	if err != nil {
		return fmt.Errorf("initialise: %w", err)
	}

	settingsService = services.Settings
	historyService = services.History
	engineFactory = services.Engine
	closeServices = services.Close
	return nil
}

func teardownServices() error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

// loadEngine returns the provider-backed services.
func loadEngine(cmd *cobra.Command) (*Engine, error) {
	if engineFactory == nil {
		return nil, errors.New("index engine not configured")
	}
	engine, err := engineFactory(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("initialise embedding provider: %w", err)
	}
	return engine, nil
}
