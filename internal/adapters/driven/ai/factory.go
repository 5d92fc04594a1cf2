// Package ai provides factory functions for creating embedding providers
// from a resolved embedding configuration.
package ai

import (
	"context"
	"fmt"
	"time"

	geminiembed "github.com/custodia-labs/kbindex/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/custodia-labs/kbindex/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kbindex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/kbindex/internal/adapters/driven/embedding/remote"
	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// NewEmbeddingProvider creates the provider selected by cfg. The Local
// variant loads its model here; the Remote variant only builds a client.
func NewEmbeddingProvider(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	switch c := cfg.(type) {
	case domain.RemoteEmbedding:
		return createRemote(ctx, c)
	case domain.LocalEmbedding:
		return ollamaembed.New(ctx, ollamaembed.Config{
			BaseURL: c.BaseURL,
			Model:   c.ModelID,
		})
	case nil:
		return nil, fmt.Errorf("%w: no embedding configuration", domain.ErrConfiguration)
	default:
		return nil, fmt.Errorf("%w: unsupported embedding configuration %T", domain.ErrConfiguration, cfg)
	}
}

// NewValidatedEmbeddingProvider creates a provider and validates connectivity.
// The provider is closed again if the ping fails.
func NewValidatedEmbeddingProvider(ctx context.Context, cfg domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	p, err := NewEmbeddingProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'kbindex settings show' to check", domain.ErrEmbeddingUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("%w: %w: service unreachable (%w)",
			domain.ErrConfiguration, domain.ErrEmbeddingUnavailable, err)
	}

	return p, nil
}

// ValidateEmbeddingConfig creates a provider for cfg, pings it and closes it.
func ValidateEmbeddingConfig(ctx context.Context, cfg domain.EmbeddingConfig) error {
	p, err := NewValidatedEmbeddingProvider(ctx, cfg)
	if err != nil {
		return err
	}
	return p.Close()
}

func createRemote(ctx context.Context, c domain.RemoteEmbedding) (driven.EmbeddingProvider, error) {
	var (
		client remote.BatchClient
		dims   int
		err    error
	)

	switch c.Backend {
	case domain.RemoteBackendOpenAI:
		client, err = openaiembed.New(openaiembed.Config{
			APIKey:  c.APIKey,
			BaseURL: c.BaseURL,
			Model:   c.Model,
		})
		dims = openaiembed.Dimensions(c.Model)
	case domain.RemoteBackendGemini:
		client, err = geminiembed.New(ctx, geminiembed.Config{
			APIKey: c.APIKey,
			Model:  c.Model,
		})
		dims = geminiembed.Dimensions(c.Model)
	default:
		return nil, fmt.Errorf("%w: unsupported remote embedding backend %q", domain.ErrConfiguration, c.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}

	return remote.New(client, remote.Config{
		Model:             c.Model,
		BatchSize:         c.BatchSize,
		Concurrency:       c.Concurrency,
		RequestsPerSecond: c.RequestsPerSecond,
		Dimensions:        dims,
	}), nil
}
