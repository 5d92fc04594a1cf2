package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrUnreadable", ErrUnreadable},
		{"ErrCorruptIndex", ErrCorruptIndex},
		{"ErrIndexNotLoaded", ErrIndexNotLoaded},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrProvider", ErrProvider},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrBuildInProgress", ErrBuildInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrCorruptIndex, ErrConfiguration))
	assert.False(t, errors.Is(ErrConfiguration, ErrCorruptIndex))
	assert.False(t, errors.Is(ErrProvider, ErrConfiguration))
}

func TestErrors_Wrapping(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrConfiguration, ErrDimensionMismatch)

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrCorruptIndex))
}
