package driven

import "context"

// EmbeddingProvider converts text into fixed-dimension vectors.
// The same instance is used for building and for querying an index.
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order.
	// A backend failure or a result count that differs from len(texts)
	// is reported as an error wrapping domain.ErrProvider.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector size, or 0 if not yet known.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the backend is reachable without embedding anything.
	Ping(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}
