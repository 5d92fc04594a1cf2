package services

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// --- Mock implementations ---

// mockLoader implements driven.DocumentLoader.
type mockLoader struct {
	docs []domain.Document
	err  error
}

func (m *mockLoader) Load(_ context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

// mockProvider implements driven.EmbeddingProvider with fixed vectors per
// text, falling back to a hash-derived vector.
type mockProvider struct {
	mu      sync.Mutex
	vectors map[string][]float32
	dims    int
	err     error
	short   bool // drop the last vector from each result
	calls   int
	block   chan struct{}
}

func newMockProvider(dims int) *mockProvider {
	return &mockProvider{dims: dims, vectors: make(map[string][]float32)}
}

func (m *mockProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, hashVector(t, m.dims))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockProvider) Dimensions() int              { return m.dims }
func (m *mockProvider) ModelName() string            { return "mock-model" }
func (m *mockProvider) Ping(_ context.Context) error { return m.err }
func (m *mockProvider) Close() error                 { return nil }

func (m *mockProvider) embedCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// hashVector derives a deterministic vector from text.
func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	h := fnv.New64a()
	for i := range v {
		_, _ = h.Write([]byte(text))
		v[i] = float32(h.Sum64()%1000)/1000 - 0.5
	}
	return v
}

// mockIndexStore implements driven.IndexStore in memory.
type mockIndexStore struct {
	mu      sync.Mutex
	saved   map[string]*domain.Index
	saveErr error
	loadErr error
	saves   int
}

func newMockIndexStore() *mockIndexStore {
	return &mockIndexStore{saved: make(map[string]*domain.Index)}
}

func (m *mockIndexStore) Save(_ context.Context, path string, idx *domain.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[path] = idx
	return nil
}

func (m *mockIndexStore) Load(_ context.Context, path string) (*domain.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	idx, ok := m.saved[path]
	if !ok {
		return nil, domain.ErrCorruptIndex
	}
	return idx, nil
}

// mockChunker implements driven.PostProcessor, one chunk per line.
type mockChunker struct {
	err error
}

func (m *mockChunker) Name() string { return "mock" }

func (m *mockChunker) Process(_ context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	var chunks []domain.Chunk
	start := 0
	for i := 0; i <= len(doc.Text); i++ {
		if i == len(doc.Text) || doc.Text[i] == '\n' {
			if i > start {
				chunks = append(chunks, domain.Chunk{
					Source:  doc.Source,
					ChunkID: len(chunks),
					Title:   doc.Title,
					Text:    doc.Text[start:i],
				})
			}
			start = i + 1
		}
	}
	return chunks, nil
}

// mockValidator implements driven.EmbeddingValidator.
type mockValidator struct {
	got domain.EmbeddingConfig
	err error
}

func (m *mockValidator) ValidateEmbedding(_ context.Context, cfg domain.EmbeddingConfig) error {
	m.got = cfg
	return m.err
}

// envMap returns a lookup function backed by vars.
func envMap(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}
