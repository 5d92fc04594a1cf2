// Package ollama provides the local embedding provider, backed by a model
// served by Ollama.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = domain.DefaultLocalModel
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: all-minilm).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Provider embeds texts with a locally served model.
type Provider struct {
	client *api.Client
	model  string
	dims   atomic.Int64
}

// New connects to Ollama and loads the model once. A model that cannot be
// shown is a configuration error.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ollama base URL %q: %w", domain.ErrConfiguration, cfg.BaseURL, err)
	}

	p := &Provider{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		model:  cfg.Model,
	}

	show, err := p.client.Show(ctx, &api.ShowRequest{Model: cfg.Model})
	if err != nil {
		return nil, fmt.Errorf("%w: load local model %s: %w", domain.ErrConfiguration, cfg.Model, err)
	}
	if dims := embeddingLength(show.ModelInfo); dims > 0 {
		p.dims.Store(int64(dims))
	}
	logger.Debug("loaded local model %s (dimensions %d)", cfg.Model, p.Dimensions())

	return p, nil
}

// embeddingLength finds "<arch>.embedding_length" in the model info.
func embeddingLength(info map[string]any) int {
	for k, v := range info {
		if !strings.HasSuffix(k, ".embedding_length") {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}

// Embed encodes all texts in a single request.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.Embed(ctx, &api.EmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: ollama embed: %w", domain.ErrProvider, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: ollama returned %d embeddings for %d inputs",
			domain.ErrProvider, len(resp.Embeddings), len(texts))
	}

	dim := len(resp.Embeddings[0])
	for i, e := range resp.Embeddings {
		if len(e) == 0 || len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, expected %d",
				domain.ErrProvider, i, len(e), dim)
		}
	}
	p.dims.Store(int64(dim))

	return resp.Embeddings, nil
}

// Dimensions returns the embedding vector size, or 0 if not yet known.
func (p *Provider) Dimensions() int {
	return int(p.dims.Load())
}

// ModelName returns the name of the embedding model being used.
func (p *Provider) ModelName() string {
	return p.model
}

// Ping validates the server is reachable without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
