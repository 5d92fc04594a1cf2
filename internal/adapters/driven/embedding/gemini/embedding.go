// Package gemini provides an embedding client for the Google Generative AI
// embeddings API.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/custodia-labs/kbindex/internal/adapters/driven/embedding/remote"
)

// Ensure Client implements the interface.
var _ remote.BatchClient = (*Client)(nil)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

// Model dimensions for Gemini embedding models.
var modelDimensions = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

// Config holds configuration for the Gemini client.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: text-embedding-004).
	Model string

	// Options are extra client options, appended after the API key.
	Options []option.ClientOption
}

// Client sends batch embedding requests with generative-ai-go.
type Client struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	name   string
}

// New creates a new Gemini embedding client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	opts := append([]option.ClientOption{option.WithAPIKey(cfg.APIKey)}, cfg.Options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Client{
		client: client,
		model:  client.EmbeddingModel(cfg.Model),
		name:   cfg.Model,
	}, nil
}

// Dimensions returns the known vector size for model, or 0.
func Dimensions(model string) int {
	return modelDimensions[model]
}

// EmbedBatch sends texts in one BatchEmbedContents request.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := c.model.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := c.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("gemini: batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding for input %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// Ping checks the model exists and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.model.Info(ctx); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}
