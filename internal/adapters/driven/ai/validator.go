package ai

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.EmbeddingValidator = (*ConfigValidator)(nil)

// ConfigValidator validates embedding configurations.
type ConfigValidator struct{}

// NewConfigValidator creates a new embedding config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding validates an embedding configuration by pinging the provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, config domain.EmbeddingConfig) error {
	return ValidateEmbeddingConfig(ctx, config)
}
