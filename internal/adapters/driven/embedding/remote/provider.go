// Package remote provides the batching embedding provider used for hosted
// embedding APIs. A backend client sends single requests; the provider
// splits the input, fans batches out under a concurrency limit and a rate
// limiter, and reassembles the vectors in input order.
package remote

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// BatchClient sends one embedding request to a hosted API.
type BatchClient interface {
	// EmbedBatch embeds texts in a single request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Ping checks the API is reachable and the credential is accepted.
	Ping(ctx context.Context) error

	// Close releases the client.
	Close() error
}

// Config controls batching.
type Config struct {
	// Model is reported by ModelName.
	Model string

	// BatchSize is the number of texts per request (default 100).
	BatchSize int

	// Concurrency is the number of requests in flight (default 1).
	Concurrency int

	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64

	// Dimensions is the known vector size for the model, or 0.
	Dimensions int
}

// Provider embeds texts through a BatchClient.
type Provider struct {
	client  BatchClient
	model   string
	batch   int
	workers int
	limiter *rate.Limiter
	dims    atomic.Int64
}

// New wraps client in a batching provider.
func New(client BatchClient, cfg Config) *Provider {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = domain.DefaultConcurrency
	}

	p := &Provider{
		client:  client,
		model:   cfg.Model,
		batch:   cfg.BatchSize,
		workers: cfg.Concurrency,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	p.dims.Store(int64(cfg.Dimensions))
	return p
}

// Embed implements driven.EmbeddingProvider. Batches run concurrently but
// each writes into its own slot, so the result follows input order. The
// first failing batch cancels the rest.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	batches := 0
	for start := 0; start < len(texts); start += p.batch {
		end := min(start+p.batch, len(texts))
		batches++
		g.Go(func() error {
			if p.limiter != nil {
				if err := p.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			vecs, err := p.client.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("%w: %s batch [%d:%d]: %w", domain.ErrProvider, p.model, start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("%w: %s batch [%d:%d] returned %d vectors for %d texts",
					domain.ErrProvider, p.model, start, end, len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	dim := len(out[0])
	for i, v := range out {
		if len(v) == 0 || len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrProvider, i, len(v), dim)
		}
	}
	p.dims.Store(int64(dim))

	logger.Debug("embedded %d texts in %d batches with %s", len(texts), batches, p.model)
	return out, nil
}

// Dimensions implements driven.EmbeddingProvider.
func (p *Provider) Dimensions() int {
	return int(p.dims.Load())
}

// ModelName implements driven.EmbeddingProvider.
func (p *Provider) ModelName() string {
	return p.model
}

// Ping implements driven.EmbeddingProvider.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close implements driven.EmbeddingProvider.
func (p *Provider) Close() error {
	return p.client.Close()
}
