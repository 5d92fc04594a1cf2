// Command kbindex builds and queries a knowledge-base vector index.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/kbindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/kbindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbindex/internal/adapters/driven/storage/npz"
	"github.com/custodia-labs/kbindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbindex/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbindex/internal/connectors/filesystem"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/services"
	"github.com/custodia-labs/kbindex/internal/logger"
	"github.com/custodia-labs/kbindex/internal/normalisers"
	"github.com/custodia-labs/kbindex/internal/postprocessors"
)

// version is set via -ldflags at release time.
var version = "dev"

// debounceEnv overrides the watcher quiet period, e.g. "2s".
const debounceEnv = "KBINDEX_WATCH_DEBOUNCE"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters for one invocation.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configStore, err := openConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator(),
		services.WithKnowledgeRoot(opts.KnowledgeRoot))

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	kb := settings.KnowledgeBase

	// Credentials may live next to the corpus; exported variables still win.
	if _, err := file.LoadDotEnv(".env", filepath.Join(kb.Root, ".env")); err != nil {
		return nil, err
	}

	var closers []func() error

	var historyStore driven.BuildHistoryStore
	if store, err := sqlite.NewStore(kb.HistoryPath()); err != nil {
		logger.Warn("build history unavailable, keeping it in memory: %v", err)
		historyStore = memory.NewBuildHistoryStore()
	} else {
		historyStore = store
		closers = append(closers, store.Close)
	}

	engine := &engineFactory{settings: settingsService, history: historyStore}
	closers = append(closers, engine.Close)

	return &cli.Services{
		Settings: settingsService,
		History:  services.NewBuildHistoryService(historyStore),
		Engine:   engine.Get,
		Close: func() error {
			var errs []error
			for i := len(closers) - 1; i >= 0; i-- {
				errs = append(errs, closers[i]())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func openConfigStore(path string) (driven.ConfigStore, error) {
	if path != "" {
		return file.NewConfigStoreFile(path)
	}
	store, err := file.NewConfigStore("")
	if err != nil {
		// No usable home directory: run on defaults and environment only.
		logger.Warn("config file unavailable, settings will not persist: %v", err)
		return memory.NewConfigStore(), nil
	}
	return store, nil
}

// engineFactory builds the provider-backed services once, on first use.
type engineFactory struct {
	settings *services.SettingsService
	history  driven.BuildHistoryStore

	once     sync.Once
	engine   *cli.Engine
	provider driven.EmbeddingProvider
	watcher  *filesystem.Watcher
	err      error
}

// Get returns the engine, constructing it on the first call.
func (f *engineFactory) Get(ctx context.Context) (*cli.Engine, error) {
	f.once.Do(func() {
		f.engine, f.err = f.build(ctx)
	})
	return f.engine, f.err
}

func (f *engineFactory) build(ctx context.Context) (*cli.Engine, error) {
	settings, err := f.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cfg, err := f.settings.ResolveEmbedding()
	if err != nil {
		return nil, err
	}

	loader, err := filesystem.New(filesystem.ConfigFromSettings(settings.KnowledgeBase), normalisers.NewDefaultRegistry())
	if err != nil {
		return nil, err
	}
	chunker, err := postprocessors.NewChunker(settings.Chunker)
	if err != nil {
		return nil, err
	}

	provider, err := ai.NewValidatedEmbeddingProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	f.provider = provider

	logger.Debug("embedding provider: %s", cfg.Describe())

	store := npz.NewStore()
	indexPath := settings.KnowledgeBase.IndexFile()

	builder := services.NewIndexBuilder(loader, chunker, provider, store, indexPath,
		services.WithHistory(f.history),
		services.WithProviderLabel(cfg.Describe()))
	retriever := services.NewRetriever(store, provider, indexPath)

	f.watcher = filesystem.NewWatcher(loader, filesystem.WithDebounce(watchDebounce()))

	return &cli.Engine{
		Builder:   builder,
		Retriever: retriever,
		Watcher:   services.NewRebuildLoop(f.watcher, builder, retriever),
	}, nil
}

// Close releases the provider and the watcher if they were created.
func (f *engineFactory) Close() error {
	var errs []error
	if f.watcher != nil {
		errs = append(errs, f.watcher.Close())
	}
	if f.provider != nil {
		errs = append(errs, f.provider.Close())
	}
	return errors.Join(errs...)
}

// watchDebounce reads the quiet period from the environment. Zero keeps the
// watcher default.
func watchDebounce() time.Duration {
	raw := os.Getenv(debounceEnv)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("ignoring %s=%q: %v", debounceEnv, raw, err)
		return 0
	}
	return d
}
