package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// IndexStore persists and loads the index artifact.
type IndexStore interface {
	// Save writes the index atomically, creating parent directories.
	// A reader of path sees either the previous artifact or the new one.
	Save(ctx context.Context, path string, idx *domain.Index) error

	// Load reads an artifact. Missing, unreadable or malformed files
	// return an error wrapping domain.ErrCorruptIndex.
	Load(ctx context.Context, path string) (*domain.Index, error)
}
