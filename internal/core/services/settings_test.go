package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbindex/internal/core/domain"
)

func newTestSettings(store *memory.ConfigStore, env map[string]string) *SettingsService {
	return NewSettingsService(store, nil, WithEnvLookup(envMap(env)))
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := newTestSettings(memory.NewConfigStore(), nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{
		"kb.root":                       "/srv/kb",
		"kb.ignore":                     []any{"drafts/**"},
		"chunker.max_chars":             int64(500),
		"embedding.backend":             "gemini",
		"embedding.model":               "embedding-001",
		"embedding.requests_per_second": 2.5,
		"embedding.local_base_url":      "http://gpu:11434",
		"retrieval.top_k":               int64(8),
	})
	service := newTestSettings(store, nil)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "/srv/kb", settings.KnowledgeBase.Root)
	assert.Equal(t, domain.DefaultPapersDir, settings.KnowledgeBase.PapersDir)
	assert.Equal(t, []string{"drafts/**"}, settings.KnowledgeBase.Ignore)
	assert.Equal(t, []string{domain.DefaultGuardrailFile}, settings.KnowledgeBase.Guardrails)
	assert.Equal(t, 500, settings.Chunker.MaxChars)
	assert.Equal(t, domain.RemoteBackendGemini, settings.Embedding.Backend)
	assert.Equal(t, "embedding-001", settings.Embedding.Model)
	assert.Equal(t, 2.5, settings.Embedding.RequestsPerSecond)
	assert.Equal(t, "http://gpu:11434", settings.Embedding.LocalBaseURL)
	assert.Equal(t, 8, settings.Retrieval.TopK)
}

func TestSettingsService_Get_KnowledgeRootOverride(t *testing.T) {
	store := memory.NewConfigStoreFrom(map[string]any{"kb.root": "/srv/kb"})

	service := NewSettingsService(store, nil, WithKnowledgeRoot("/tmp/other"))
	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other", settings.KnowledgeBase.Root)
	assert.Equal(t, "/srv/kb", store.GetString("kb.root"))

	service = NewSettingsService(store, nil, WithKnowledgeRoot(""))
	settings, err = service.Get()
	require.NoError(t, err)
	assert.Equal(t, "/srv/kb", settings.KnowledgeBase.Root)
}

func TestSettingsService_Get_Environment(t *testing.T) {
	tests := []struct {
		name       string
		backend    string
		configKey  string
		env        map[string]string
		wantKey    string
		wantOllama string
	}{
		{
			name:    "openai key from env",
			env:     map[string]string{"OPENAI_API_KEY": "sk-env"},
			wantKey: "sk-env",
		},
		{
			name:      "env wins over config",
			configKey: "sk-file",
			env:       map[string]string{"OPENAI_API_KEY": "sk-env"},
			wantKey:   "sk-env",
		},
		{
			name:      "empty env keeps config",
			configKey: "sk-file",
			env:       map[string]string{"OPENAI_API_KEY": ""},
			wantKey:   "sk-file",
		},
		{
			name:    "gemini reads its own variable",
			backend: "gemini",
			env:     map[string]string{"OPENAI_API_KEY": "sk-env", "GEMINI_API_KEY": "g-env"},
			wantKey: "g-env",
		},
		{
			name:    "unknown backend ignores env",
			backend: "cohere",
			env:     map[string]string{"OPENAI_API_KEY": "sk-env"},
		},
		{
			name:       "ollama host without scheme",
			env:        map[string]string{"OLLAMA_HOST": "127.0.0.1:11500"},
			wantOllama: "http://127.0.0.1:11500",
		},
		{
			name:       "ollama host with scheme",
			env:        map[string]string{"OLLAMA_HOST": "https://ollama.internal"},
			wantOllama: "https://ollama.internal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			if tt.backend != "" {
				_ = store.Set("embedding.backend", tt.backend)
			}
			if tt.configKey != "" {
				_ = store.Set("embedding.api_key", tt.configKey)
			}

			settings, err := newTestSettings(store, tt.env).Get()

			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, settings.Embedding.APIKey)
			assert.Equal(t, tt.wantOllama, settings.Embedding.LocalBaseURL)
		})
	}
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := newTestSettings(store, nil)

	settings := domain.DefaultAppSettings()
	settings.KnowledgeBase.Root = "notes"
	settings.Embedding.Backend = domain.RemoteBackendGemini
	settings.Retrieval.TopK = 3

	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "notes", store.GetString("kb.root"))
	assert.Equal(t, "gemini", store.GetString("embedding.backend"))
	assert.Equal(t, 3, store.GetInt("retrieval.top_k"))
	_, hasKey := store.Get("embedding.api_key")
	assert.False(t, hasKey, "empty api key must not be written")

	settings.Embedding.APIKey = "g-key"
	require.NoError(t, service.Save(&settings))
	assert.Equal(t, "g-key", store.GetString("embedding.api_key"))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_Nil(t *testing.T) {
	err := newTestSettings(memory.NewConfigStore(), nil).Save(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  any
	}{
		{"kb.root", "/data/kb", "/data/kb"},
		{"kb.ignore", "index*, drafts/** ,", []string{"index*", "drafts/**"}},
		{"kb.guardrails", "", []string{}},
		{"chunker.max_chars", "750", 750},
		{"embedding.backend", "gemini", "gemini"},
		{"embedding.requests_per_second", "0.5", 0.5},
		{"embedding.local_base_url", "localhost:11434", "http://localhost:11434"},
		{"retrieval.top_k", "10", 10},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := newTestSettings(store, nil)

			require.NoError(t, service.Set(tt.key, tt.value))

			got, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Set_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"unknown.key", "x"},
		{"embedding.backend", "cohere"},
		{"chunker.max_chars", "zero"},
		{"chunker.max_chars", "0"},
		{"retrieval.top_k", "-3"},
		{"embedding.requests_per_second", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			store := memory.NewConfigStore()

			err := newTestSettings(store, nil).Set(tt.key, tt.value)

			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	service := newTestSettings(memory.NewConfigStore(), nil)

	keys := service.Keys()

	assert.Contains(t, keys, "embedding.api_key")
	assert.Contains(t, keys, "kb.papers_dir")
	assert.Len(t, keys, len(settingsKeys))

	keys[0] = "mutated"
	assert.Equal(t, "kb.root", service.Keys()[0])
}

func TestSettingsService_ResolveEmbedding(t *testing.T) {
	t.Run("local without credential", func(t *testing.T) {
		cfg, err := newTestSettings(memory.NewConfigStore(), nil).ResolveEmbedding()

		require.NoError(t, err)
		local, ok := cfg.(domain.LocalEmbedding)
		require.True(t, ok)
		assert.Equal(t, domain.DefaultLocalModel, local.ModelID)
	})

	t.Run("remote with env credential", func(t *testing.T) {
		service := newTestSettings(memory.NewConfigStore(), map[string]string{"OPENAI_API_KEY": "sk"})

		cfg, err := service.ResolveEmbedding()

		require.NoError(t, err)
		remote, ok := cfg.(domain.RemoteEmbedding)
		require.True(t, ok)
		assert.Equal(t, domain.DefaultOpenAIModel, remote.Model)
		assert.Equal(t, domain.DefaultBatchSize, remote.BatchSize)
	})

	t.Run("unknown backend with credential", func(t *testing.T) {
		store := memory.NewConfigStoreFrom(map[string]any{
			"embedding.backend": "cohere",
			"embedding.api_key": "k",
		})

		_, err := newTestSettings(store, nil).ResolveEmbedding()

		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("nil validator", func(t *testing.T) {
		assert.NoError(t, newTestSettings(memory.NewConfigStore(), nil).ValidateEmbeddingConfig(ctx))
	})

	t.Run("passes resolved config", func(t *testing.T) {
		validator := &mockValidator{}
		service := NewSettingsService(memory.NewConfigStore(), validator, WithEnvLookup(envMap(nil)))

		require.NoError(t, service.ValidateEmbeddingConfig(ctx))
		assert.Equal(t, domain.ProviderLocal, validator.got.Kind())
	})

	t.Run("propagates failure", func(t *testing.T) {
		validator := &mockValidator{err: errors.Join(domain.ErrConfiguration, errors.New("unreachable"))}
		service := NewSettingsService(memory.NewConfigStore(), validator, WithEnvLookup(envMap(nil)))

		assert.ErrorIs(t, service.ValidateEmbeddingConfig(ctx), domain.ErrConfiguration)
	})
}
