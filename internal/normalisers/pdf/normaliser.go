// Package pdf provides the PDF normaliser. Each page becomes its own document.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the MIME type handled by this normaliser.
const MIMEType = "application/pdf"

// PageExtractor returns the plain text of every page in a PDF.
// An error means the document itself could not be opened. A page whose
// text cannot be extracted is returned as an empty string.
type PageExtractor interface {
	Pages(content []byte) ([]string, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by ledongthuc/pdf.
func New() *Normaliser {
	return &Normaliser{extractor: readerExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
func NewWithExtractor(e PageExtractor) *Normaliser {
	return &Normaliser{extractor: e}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Normalise splits a PDF into one document per page.
// Files that are not PDFs or cannot be opened return domain.ErrUnreadable.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) ([]domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	if mt := mimetype.Detect(raw.Content); !mt.Is(MIMEType) {
		return nil, fmt.Errorf("%w: %s detected as %s", domain.ErrUnreadable, raw.RelPath, mt.String())
	}

	pages, err := n.extractor.Pages(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrUnreadable, raw.RelPath, err)
	}

	name := stem(raw.Path)
	source := filepath.ToSlash(raw.RelPath)

	docs := make([]domain.Document, len(pages))
	for i, text := range pages {
		page := i + 1
		docs[i] = domain.Document{
			Source: fmt.Sprintf("%s::page_%d", source, page),
			Title:  fmt.Sprintf("%s - page %d", name, page),
			Text:   text,
		}
	}

	return docs, nil
}

// stem returns the base name without its extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// readerExtractor extracts page text with ledongthuc/pdf.
type readerExtractor struct{}

// Pages implements PageExtractor.
func (readerExtractor) Pages(content []byte) (pages []string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := r.NumPage()
	pages = make([]string, total)
	for i := 1; i <= total; i++ {
		pages[i-1] = pageText(r, i)
	}
	return pages, nil
}

// pageText returns the text of page i, or "" if it cannot be extracted.
func pageText(r *pdf.Reader, i int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug("pdf page %d: %v", i, rec)
			text = ""
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return ""
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		logger.Debug("pdf page %d: %v", i, err)
		return ""
	}
	return text
}
