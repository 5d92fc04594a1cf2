package domain

import (
	"fmt"
	"path/filepath"
)

const unknownDescription = "Unknown"

// Default settings values.
const (
	DefaultKnowledgeRoot = "kb"
	DefaultPapersDir     = "papers"
	DefaultIndexPath     = "db/index.npz"
	DefaultHistoryDir    = "db"
	DefaultMaxChars      = 1000
	DefaultBatchSize     = 100
	DefaultConcurrency   = 1
	DefaultLocalModel    = "all-minilm"
	DefaultTopK          = 5
	DefaultGuardrailFile = "role.md"
	DefaultIgnorePattern = "index*"
	DefaultOpenAIModel   = "text-embedding-3-small"
	DefaultGeminiModel   = "text-embedding-004"
)

// RemoteBackend identifies the hosted embedding API used by the Remote provider.
type RemoteBackend string

// Available remote backends.
const (
	// RemoteBackendOpenAI is the OpenAI embeddings API (or a compatible server).
	RemoteBackendOpenAI RemoteBackend = "openai"

	// RemoteBackendGemini is the Google Generative AI embeddings API.
	RemoteBackendGemini RemoteBackend = "gemini"
)

// IsValid returns true if the backend is recognised.
func (b RemoteBackend) IsValid() bool {
	switch b {
	case RemoteBackendOpenAI, RemoteBackendGemini:
		return true
	default:
		return false
	}
}

// DefaultModel returns the documented default model for the backend.
func (b RemoteBackend) DefaultModel() string {
	switch b {
	case RemoteBackendOpenAI:
		return DefaultOpenAIModel
	case RemoteBackendGemini:
		return DefaultGeminiModel
	default:
		return ""
	}
}

// CredentialEnv returns the environment variable holding the backend's API key.
func (b RemoteBackend) CredentialEnv() string {
	switch b {
	case RemoteBackendOpenAI:
		return "OPENAI_API_KEY"
	case RemoteBackendGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// String returns the string representation.
func (b RemoteBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b RemoteBackend) Description() string {
	switch b {
	case RemoteBackendOpenAI:
		return "OpenAI (cloud)"
	case RemoteBackendGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// ProviderKind distinguishes the two embedding provider variants.
type ProviderKind string

// Provider variants.
const (
	ProviderRemote ProviderKind = "remote"
	ProviderLocal  ProviderKind = "local"
)

// EmbeddingConfig is the resolved provider selection: either RemoteEmbedding
// or LocalEmbedding. It is decided once at startup by ResolveEmbeddingConfig
// and threaded explicitly to whatever constructs the provider.
type EmbeddingConfig interface {
	// Kind reports which variant this is.
	Kind() ProviderKind

	// Describe returns a short label such as "remote/openai".
	Describe() string

	embeddingConfig()
}

// RemoteEmbedding selects a hosted embedding API.
type RemoteEmbedding struct {
	// Backend is the hosted API.
	Backend RemoteBackend

	// Model is the embedding model identifier.
	Model string

	// BatchSize is the number of texts sent per request.
	BatchSize int

	// Concurrency is the number of batches in flight at once.
	Concurrency int

	// RequestsPerSecond caps the request rate. Zero means unlimited.
	RequestsPerSecond float64

	// APIKey is the credential for the backend.
	APIKey string

	// BaseURL overrides the API endpoint (OpenAI-compatible servers).
	BaseURL string
}

// Kind implements EmbeddingConfig.
func (RemoteEmbedding) Kind() ProviderKind { return ProviderRemote }

// Describe implements EmbeddingConfig.
func (r RemoteEmbedding) Describe() string { return "remote/" + r.Backend.String() }

func (RemoteEmbedding) embeddingConfig() {}

// LocalEmbedding selects a locally served embedding model.
type LocalEmbedding struct {
	// ModelID is the local model to load.
	ModelID string

	// BaseURL is the local model server endpoint.
	BaseURL string
}

// Kind implements EmbeddingConfig.
func (LocalEmbedding) Kind() ProviderKind { return ProviderLocal }

// Describe implements EmbeddingConfig.
func (LocalEmbedding) Describe() string { return "local/ollama" }

func (LocalEmbedding) embeddingConfig() {}

// EmbeddingSettings holds the raw embedding configuration before resolution.
type EmbeddingSettings struct {
	// Backend is the remote API used when a credential is present.
	Backend RemoteBackend

	// Model is the remote embedding model. Empty means the backend default.
	Model string

	// BatchSize is the remote batch size.
	BatchSize int

	// Concurrency is the number of remote batches in flight.
	Concurrency int

	// RequestsPerSecond caps remote requests. Zero means unlimited.
	RequestsPerSecond float64

	// BaseURL overrides the remote endpoint.
	BaseURL string

	// APIKey is the remote credential. Its presence selects the Remote variant.
	APIKey string

	// LocalModel is the model used by the Local variant.
	LocalModel string

	// LocalBaseURL is the local model server endpoint.
	LocalBaseURL string
}

// HasCredential returns true if a remote credential is configured.
func (e EmbeddingSettings) HasCredential() bool {
	return e.APIKey != ""
}

// ResolveEmbeddingConfig applies the selection policy: Remote when a
// credential is configured, Local otherwise. A credential paired with an
// unknown backend is a configuration error.
func ResolveEmbeddingConfig(e EmbeddingSettings) (EmbeddingConfig, error) {
	if !e.HasCredential() {
		model := e.LocalModel
		if model == "" {
			model = DefaultLocalModel
		}
		return LocalEmbedding{ModelID: model, BaseURL: e.LocalBaseURL}, nil
	}

	if !e.Backend.IsValid() {
		return nil, fmt.Errorf("%w: unsupported remote embedding backend %q", ErrConfiguration, e.Backend)
	}

	model := e.Model
	if model == "" {
		model = e.Backend.DefaultModel()
	}
	batch := e.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	conc := e.Concurrency
	if conc <= 0 {
		conc = DefaultConcurrency
	}
	rps := e.RequestsPerSecond
	if rps < 0 {
		rps = 0
	}

	return RemoteEmbedding{
		Backend:           e.Backend,
		Model:             model,
		BatchSize:         batch,
		Concurrency:       conc,
		RequestsPerSecond: rps,
		APIKey:            e.APIKey,
		BaseURL:           e.BaseURL,
	}, nil
}

// KnowledgeBaseSettings locates the corpus and the artifact on disk.
type KnowledgeBaseSettings struct {
	// Root is the knowledge root directory.
	Root string

	// PapersDir holds the source documents, relative to Root unless absolute.
	PapersDir string

	// IndexPath is the artifact path, relative to Root unless absolute.
	IndexPath string

	// HistoryDir holds the build history database, relative to Root unless absolute.
	HistoryDir string

	// Guardrails are reserved files that must never be indexed.
	Guardrails []string

	// Ignore holds glob patterns matched against file names to skip.
	Ignore []string
}

// Resolve returns p joined to Root unless p is absolute.
func (k KnowledgeBaseSettings) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(k.Root, p)
}

// PapersPath returns the resolved papers directory.
func (k KnowledgeBaseSettings) PapersPath() string {
	return k.Resolve(k.PapersDir)
}

// IndexFile returns the resolved artifact path.
func (k KnowledgeBaseSettings) IndexFile() string {
	return k.Resolve(k.IndexPath)
}

// HistoryPath returns the resolved build history directory.
func (k KnowledgeBaseSettings) HistoryPath() string {
	return k.Resolve(k.HistoryDir)
}

// ChunkerSettings configures the paragraph chunker.
type ChunkerSettings struct {
	// MaxChars bounds every chunk's length in characters.
	MaxChars int
}

// RetrievalSettings configures query defaults.
type RetrievalSettings struct {
	// TopK is the default number of results returned by a query.
	TopK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	// KnowledgeBase locates the corpus and artifact.
	KnowledgeBase KnowledgeBaseSettings

	// Chunker holds chunking settings.
	Chunker ChunkerSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// Retrieval holds query settings.
	Retrieval RetrievalSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// No credential is set, so the Local provider is selected until one is configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		KnowledgeBase: KnowledgeBaseSettings{
			Root:       DefaultKnowledgeRoot,
			PapersDir:  DefaultPapersDir,
			IndexPath:  DefaultIndexPath,
			HistoryDir: DefaultHistoryDir,
			Guardrails: []string{DefaultGuardrailFile},
			Ignore:     []string{DefaultIgnorePattern},
		},
		Chunker: ChunkerSettings{
			MaxChars: DefaultMaxChars,
		},
		Embedding: EmbeddingSettings{
			Backend:     RemoteBackendOpenAI,
			BatchSize:   DefaultBatchSize,
			Concurrency: DefaultConcurrency,
			LocalModel:  DefaultLocalModel,
		},
		Retrieval: RetrievalSettings{
			TopK: DefaultTopK,
		},
	}
}
