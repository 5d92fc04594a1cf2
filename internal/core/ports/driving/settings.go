package driving

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings: defaults, then config file, then environment.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single configuration key.
	Set(key, value string) error

	// Keys returns the recognised configuration keys.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// ResolveEmbedding applies the provider selection policy to current settings.
	ResolveEmbedding() (domain.EmbeddingConfig, error)

	// ValidateEmbeddingConfig pings the provider the current settings select.
	ValidateEmbeddingConfig(ctx context.Context) error
}
