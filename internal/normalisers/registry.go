package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/normalisers/markdown"
	"github.com/custodia-labs/kbindex/internal/normalisers/pdf"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches raw files to normalisers by MIME type.
// The last normaliser registered for a MIME type wins.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIME: make(map[string]driven.Normaliser),
	}
}

// NewDefaultRegistry creates a registry with the markdown and PDF normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(markdown.New())
	r.Register(pdf.New())
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mime := range n.SupportedMIMETypes() {
		r.byMIME[mime] = n
	}
}

// Normalise transforms raw using the normaliser registered for its MIME type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	n, ok := r.byMIME[raw.MIMEType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, raw.MIMEType)
	}

	return n.Normalise(ctx, raw)
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		types = append(types, mime)
	}
	sort.Strings(types)
	return types
}
