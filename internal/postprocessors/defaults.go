package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/postprocessors/chunker"
)

// ChunkerName is the registry name of the paragraph chunker.
const ChunkerName = "chunker"

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(ChunkerName, buildChunker)
}

// NewChunker builds the paragraph chunker from settings.
func NewChunker(s domain.ChunkerSettings) (driven.PostProcessor, error) {
	return NewDefaultRegistry().Build(ChunkerName, map[string]any{"max_chars": s.MaxChars})
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - max_chars (int): Maximum characters per chunk (default: 1000)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if _, ok := cfg["max_chars"]; ok {
			n := getIntFromConfig(cfg, "max_chars")
			if n <= 0 {
				return nil, fmt.Errorf("max_chars must be positive, got %v", cfg["max_chars"])
			}
			opts = append(opts, chunker.WithMaxChars(n))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
