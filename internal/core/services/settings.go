package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyKBRoot            = "kb.root"
	keyKBPapersDir       = "kb.papers_dir"
	keyKBIndexPath       = "kb.index_path"
	keyKBHistoryDir      = "kb.history_dir"
	keyKBGuardrails      = "kb.guardrails"
	keyKBIgnore          = "kb.ignore"
	keyChunkerMaxChars   = "chunker.max_chars"
	keyEmbedBackend      = "embedding.backend"
	keyEmbedModel        = "embedding.model"
	keyEmbedBatchSize    = "embedding.batch_size"
	keyEmbedConcurrency  = "embedding.concurrency"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedLocalModel   = "embedding.local_model"
	keyEmbedLocalBaseURL = "embedding.local_base_url"
	keyRetrievalTopK     = "retrieval.top_k"
)

// envOllamaHost overrides the local model server endpoint.
const envOllamaHost = "OLLAMA_HOST"

// settingsKeys lists every recognised key in display order.
var settingsKeys = []string{
	keyKBRoot, keyKBPapersDir, keyKBIndexPath, keyKBHistoryDir, keyKBGuardrails, keyKBIgnore,
	keyChunkerMaxChars,
	keyEmbedBackend, keyEmbedModel, keyEmbedBatchSize, keyEmbedConcurrency, keyEmbedRPS,
	keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedLocalModel, keyEmbedLocalBaseURL,
	keyRetrievalTopK,
}

// SettingsService manages application settings.
// Values are layered: defaults, then the config store, then the environment.
type SettingsService struct {
	configStore  driven.ConfigStore
	validator    driven.EmbeddingValidator
	lookupEnv    func(string) (string, bool)
	rootOverride string
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnvLookup replaces os.LookupEnv as the environment source.
func WithEnvLookup(fn func(string) (string, bool)) SettingsOption {
	return func(s *SettingsService) {
		if fn != nil {
			s.lookupEnv = fn
		}
	}
}

// WithKnowledgeRoot overrides kb.root for this process without persisting it.
// An empty root leaves the stored value in effect.
func WithKnowledgeRoot(root string) SettingsOption {
	return func(s *SettingsService) {
		s.rootOverride = root
	}
}

// NewSettingsService creates a new settings service.
// validator may be nil, in which case ValidateEmbeddingConfig is a no-op.
func NewSettingsService(
	configStore driven.ConfigStore,
	validator driven.EmbeddingValidator,
	opts ...SettingsOption,
) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		validator:   validator,
		lookupEnv:   os.LookupEnv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		KnowledgeBase: domain.KnowledgeBaseSettings{
			Root:       s.getString(keyKBRoot, defaults.KnowledgeBase.Root),
			PapersDir:  s.getString(keyKBPapersDir, defaults.KnowledgeBase.PapersDir),
			IndexPath:  s.getString(keyKBIndexPath, defaults.KnowledgeBase.IndexPath),
			HistoryDir: s.getString(keyKBHistoryDir, defaults.KnowledgeBase.HistoryDir),
			Guardrails: s.getStringSlice(keyKBGuardrails, defaults.KnowledgeBase.Guardrails),
			Ignore:     s.getStringSlice(keyKBIgnore, defaults.KnowledgeBase.Ignore),
		},
		Chunker: domain.ChunkerSettings{
			MaxChars: s.getInt(keyChunkerMaxChars, defaults.Chunker.MaxChars),
		},
		Embedding: domain.EmbeddingSettings{
			Backend:           domain.RemoteBackend(s.getString(keyEmbedBackend, defaults.Embedding.Backend.String())),
			Model:             s.configStore.GetString(keyEmbedModel), // empty selects the backend default
			BatchSize:         s.getInt(keyEmbedBatchSize, defaults.Embedding.BatchSize),
			Concurrency:       s.getInt(keyEmbedConcurrency, defaults.Embedding.Concurrency),
			RequestsPerSecond: s.configStore.GetFloat(keyEmbedRPS),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			LocalModel:        s.getString(keyEmbedLocalModel, defaults.Embedding.LocalModel),
			LocalBaseURL:      s.configStore.GetString(keyEmbedLocalBaseURL),
		},
		Retrieval: domain.RetrievalSettings{
			TopK: s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
		},
	}

	if s.rootOverride != "" {
		settings.KnowledgeBase.Root = s.rootOverride
	}
	s.applyEnv(&settings.Embedding)

	return settings, nil
}

// applyEnv layers credentials and endpoints from the environment.
// A credential in the environment wins over one in the config file.
func (s *SettingsService) applyEnv(e *domain.EmbeddingSettings) {
	if name := e.Backend.CredentialEnv(); name != "" {
		if key, ok := s.lookupEnv(name); ok && key != "" {
			e.APIKey = key
		}
	}
	if host, ok := s.lookupEnv(envOllamaHost); ok && host != "" {
		e.LocalBaseURL = normaliseHost(host)
	}
}

// normaliseHost adds a scheme to bare host:port values.
func normaliseHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}

// Save persists application settings.
// The API key is only written when set so environment-only credentials
// never land in the config file by accident.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}

	kb := settings.KnowledgeBase
	emb := settings.Embedding

	values := []struct {
		key   string
		value any
	}{
		{keyKBRoot, kb.Root},
		{keyKBPapersDir, kb.PapersDir},
		{keyKBIndexPath, kb.IndexPath},
		{keyKBHistoryDir, kb.HistoryDir},
		{keyKBGuardrails, kb.Guardrails},
		{keyKBIgnore, kb.Ignore},
		{keyChunkerMaxChars, settings.Chunker.MaxChars},
		{keyEmbedBackend, emb.Backend.String()},
		{keyEmbedModel, emb.Model},
		{keyEmbedBatchSize, emb.BatchSize},
		{keyEmbedConcurrency, emb.Concurrency},
		{keyEmbedRPS, emb.RequestsPerSecond},
		{keyEmbedBaseURL, emb.BaseURL},
		{keyEmbedLocalModel, emb.LocalModel},
		{keyEmbedLocalBaseURL, emb.LocalBaseURL},
		{keyRetrievalTopK, settings.Retrieval.TopK},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if emb.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, emb.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Set parses value for key and stores it.
// Lists are comma separated. Unknown keys and unparsable values return
// domain.ErrInvalidInput.
func (s *SettingsService) Set(key, value string) error {
	var parsed any

	switch key {
	case keyKBRoot, keyKBPapersDir, keyKBIndexPath, keyKBHistoryDir,
		keyEmbedModel, keyEmbedBaseURL, keyEmbedAPIKey, keyEmbedLocalModel:
		parsed = value

	case keyEmbedLocalBaseURL:
		parsed = value
		if value != "" {
			parsed = normaliseHost(value)
		}

	case keyKBGuardrails, keyKBIgnore:
		parsed = splitList(value)

	case keyEmbedBackend:
		backend := domain.RemoteBackend(value)
		if !backend.IsValid() {
			return fmt.Errorf("%w: unknown embedding backend %q (want openai or gemini)", domain.ErrInvalidInput, value)
		}
		parsed = backend.String()

	case keyChunkerMaxChars, keyEmbedBatchSize, keyEmbedConcurrency, keyRetrievalTopK:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %s must be a positive integer, got %q", domain.ErrInvalidInput, key, value)
		}
		parsed = n

	case keyEmbedRPS:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %q", domain.ErrInvalidInput, key, value)
		}
		parsed = f

	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised configuration keys.
func (s *SettingsService) Keys() []string {
	out := make([]string, len(settingsKeys))
	copy(out, settingsKeys)
	return out
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ResolveEmbedding applies the provider selection policy to current settings.
func (s *SettingsService) ResolveEmbedding() (domain.EmbeddingConfig, error) {
	settings, err := s.Get()
	if err != nil {
		return nil, err
	}
	return domain.ResolveEmbeddingConfig(settings.Embedding)
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig(ctx context.Context) error {
	if s.validator == nil {
		return nil
	}
	cfg, err := s.ResolveEmbedding()
	if err != nil {
		return err
	}
	return s.validator.ValidateEmbedding(ctx, cfg)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

// splitList parses a comma separated list, dropping empty items.
func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
