package driven

import (
	"context"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// Normaliser transforms one raw file into documents.
// Each normaliser handles specific MIME types (e.g., PDF, Markdown).
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise transforms a raw file into one or more documents.
	// Markdown yields one document; PDF yields one per page.
	Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error)
}
