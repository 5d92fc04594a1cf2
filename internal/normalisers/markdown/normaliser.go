// Package markdown provides the Markdown normaliser.
package markdown

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the canonical MIME type assigned to markdown files.
const MIMEType = "text/markdown"

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType, "text/x-markdown"}
}

// Normalise turns a markdown file into a single document.
// The text is kept verbatim so paragraph boundaries reach the chunker.
// Content that is not valid UTF-8 is rejected.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidInput, raw.RelPath)
	}

	text := string(raw.Content)

	return []domain.Document{{
		Source: filepath.ToSlash(raw.RelPath),
		Title:  extractTitle(text, raw.Path),
		Text:   text,
	}}, nil
}

// extractTitle returns the first non-blank line, trimmed, or the file stem.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return stem(path)
}

// stem returns the base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
