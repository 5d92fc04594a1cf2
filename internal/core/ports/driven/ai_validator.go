package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// EmbeddingValidator checks that a resolved embedding configuration can
// produce a working provider.
type EmbeddingValidator interface {
	// ValidateEmbedding constructs a provider for config, pings it and
	// releases it. Returns an error wrapping domain.ErrConfiguration on failure.
	ValidateEmbedding(ctx context.Context, config domain.EmbeddingConfig) error
}
