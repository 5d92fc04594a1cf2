// Package chunker splits document text into bounded, paragraph-aligned chunks.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultMaxChars is the default upper bound on chunk length in characters.
const DefaultMaxChars = domain.DefaultMaxChars

// paragraphSep separates paragraphs in the input and in emitted chunks.
const paragraphSep = "\n\n"

// Chunk splits text into chunks of at most maxChars characters.
//
// Paragraphs (separated by a blank line) are trimmed and empty ones dropped.
// Consecutive paragraphs are packed into one chunk, joined by a blank line,
// while the joined length stays within maxChars. A paragraph longer than
// maxChars is cut into consecutive maxChars-sized slices, each its own chunk.
// Lengths count runes. maxChars <= 0 selects DefaultMaxChars.
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	var (
		chunks []string
		buf    []string
		// bufLen is the joined length of buf plus one.
		bufLen int
	)

	for _, raw := range strings.Split(text, paragraphSep) {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		n := utf8.RuneCountInString(p)

		if bufLen+n+1 <= maxChars {
			if len(buf) == 0 {
				bufLen = n + 1
			} else {
				bufLen += n + len(paragraphSep)
			}
			buf = append(buf, p)
			continue
		}

		if len(buf) > 0 {
			chunks = append(chunks, strings.Join(buf, paragraphSep))
		}

		if n > maxChars {
			chunks = append(chunks, hardSplit(p, maxChars)...)
			buf = nil
			bufLen = 0
		} else {
			buf = []string{p}
			bufLen = n + 1
		}
	}

	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, paragraphSep))
	}

	return chunks
}

// hardSplit cuts s into consecutive slices of size runes; the last may be shorter.
func hardSplit(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// Processor turns documents into domain chunks.
type Processor struct {
	maxChars int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMaxChars sets the maximum chunk length in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		maxChars: DefaultMaxChars,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// MaxChars returns the configured chunk bound.
func (p *Processor) MaxChars() int {
	return p.maxChars
}

// Process splits the document text into chunks numbered from 0.
func (p *Processor) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}

	texts := Chunk(doc.Text, p.maxChars)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Source:  doc.Source,
			ChunkID: i,
			Title:   doc.Title,
			Text:    text,
		}
	}

	return chunks, nil
}
