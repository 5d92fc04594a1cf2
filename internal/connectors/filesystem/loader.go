package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
	"github.com/custodia-labs/kbindex/internal/normalisers/markdown"
	"github.com/custodia-labs/kbindex/internal/normalisers/pdf"
)

// Verify interface compliance.
var _ driven.DocumentLoader = (*Loader)(nil)

// extensionMIME maps the file extensions the loader picks up to the MIME
// type handed to the normaliser registry.
var extensionMIME = map[string]string{
	".md":       markdown.MIMEType,
	".markdown": markdown.MIMEType,
	".pdf":      pdf.MIMEType,
}

// Config locates the corpus on disk.
type Config struct {
	// Root is the knowledge root. Document sources are relative to it.
	Root string

	// PapersDir is the directory scanned for documents.
	PapersDir string

	// Guardrails are root-relative paths that are never loaded.
	Guardrails []string

	// Ignore holds doublestar patterns. Patterns without a slash match the
	// file name, others match the path relative to PapersDir.
	Ignore []string
}

// ConfigFromSettings builds a loader Config from knowledge base settings.
func ConfigFromSettings(kb domain.KnowledgeBaseSettings) Config {
	return Config{
		Root:       kb.Root,
		PapersDir:  kb.PapersPath(),
		Guardrails: kb.Guardrails,
		Ignore:     kb.Ignore,
	}
}

// Loader enumerates markdown and PDF files under the papers directory and
// turns them into documents through the normaliser registry.
type Loader struct {
	cfg      Config
	registry driven.NormaliserRegistry
}

// New creates a loader. Ignore patterns are validated up front.
func New(cfg Config, registry driven.NormaliserRegistry) (*Loader, error) {
	if registry == nil {
		return nil, fmt.Errorf("%w: normaliser registry is required", domain.ErrConfiguration)
	}
	for _, p := range cfg.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w: invalid ignore pattern %q", domain.ErrConfiguration, p)
		}
	}
	if cfg.PapersDir == "" {
		cfg.PapersDir = cfg.Root
	}
	return &Loader{cfg: cfg, registry: registry}, nil
}

// PapersDir returns the scanned directory.
func (l *Loader) PapersDir() string {
	return l.cfg.PapersDir
}

// Load returns every document in the corpus: all markdown files first, then
// each PDF page. A missing papers directory yields no documents. PDFs that
// cannot be read are skipped with a warning; any other failure aborts.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.cfg.PapersDir)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("papers directory %s does not exist, nothing to load", l.cfg.PapersDir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat papers directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, l.cfg.PapersDir)
	}

	markdownFiles, pdfFiles, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, path := range markdownFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := l.loadFile(ctx, path, markdown.MIMEType)
		if err != nil {
			return nil, err
		}
		docs = append(docs, got...)
	}

	for _, path := range pdfFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := l.loadFile(ctx, path, pdf.MIMEType)
		if errors.Is(err, domain.ErrUnreadable) {
			logger.Warn("skipping PDF %s: %v", path, err)
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, got...)
	}

	logger.Debug("loaded %d documents from %d markdown and %d PDF files",
		len(docs), len(markdownFiles), len(pdfFiles))
	return docs, nil
}

// scan walks the papers directory and returns the accepted markdown and PDF
// paths, each sorted lexically.
func (l *Loader) scan(ctx context.Context) (markdownFiles, pdfFiles []string, err error) {
	err = filepath.WalkDir(l.cfg.PapersDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != l.cfg.PapersDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !l.Accepts(path) {
			return nil
		}
		switch extensionMIME[strings.ToLower(filepath.Ext(path))] {
		case markdown.MIMEType:
			markdownFiles = append(markdownFiles, path)
		case pdf.MIMEType:
			pdfFiles = append(pdfFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk papers directory: %w", err)
	}
	sort.Strings(markdownFiles)
	sort.Strings(pdfFiles)
	return markdownFiles, pdfFiles, nil
}

// Accepts reports whether path would be loaded: a supported extension, not
// hidden, not a guardrail file and not matched by an ignore pattern.
func (l *Loader) Accepts(path string) bool {
	mimeType, ok := extensionMIME[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return false
	}
	rel, err := filepath.Rel(l.cfg.PapersDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	if isHidden(rel) {
		return false
	}
	if l.isGuardrail(path) {
		return false
	}
	// Ignore patterns only ever skip notes; every PDF is a paper.
	if mimeType != markdown.MIMEType {
		return true
	}
	return !l.isIgnored(filepath.ToSlash(rel))
}

// isGuardrail reports whether path is one of the reserved files, which are
// named relative to the knowledge root.
func (l *Loader) isGuardrail(path string) bool {
	rootRel, err := filepath.Rel(l.cfg.Root, path)
	if err != nil {
		return false
	}
	rootRel = filepath.ToSlash(rootRel)
	for _, g := range l.cfg.Guardrails {
		if g == "" {
			continue
		}
		if filepath.ToSlash(filepath.Clean(g)) == rootRel {
			return true
		}
	}
	return false
}

func (l *Loader) isIgnored(rel string) bool {
	name := rel[strings.LastIndex(rel, "/")+1:]
	for _, p := range l.cfg.Ignore {
		target := name
		if strings.Contains(p, "/") {
			target = rel
		}
		if ok, _ := doublestar.Match(p, target); ok {
			return true
		}
	}
	return false
}

func (l *Loader) loadFile(ctx context.Context, path, mimeType string) ([]domain.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if mimeType == pdf.MIMEType {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnreadable, err)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	rel, err := filepath.Rel(l.cfg.Root, path)
	if err != nil {
		rel = path
	}

	docs, err := l.registry.Normalise(ctx, &domain.RawDocument{
		Path:     path,
		RelPath:  rel,
		MIMEType: mimeType,
		Content:  content,
	})
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", rel, err)
	}
	return docs, nil
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
