package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a file.
// Dispatch is by MIME type.
type NormaliserRegistry interface {
	// Normalise transforms a raw file using the normaliser registered for
	// its MIME type. Unknown types return domain.ErrUnsupportedType.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
