package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		assert.ErrorIs(t, err, ErrMissingRetriever)
		assert.Nil(t, server)
	})

	t.Run("nil retriever returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingRetriever)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	assert.ErrorIs(t, (&Ports{}).Validate(), ErrMissingRetriever)
	assert.NoError(t, (&Ports{Retriever: &mockRetriever{}}).Validate())
	assert.NoError(t, (&Ports{Retriever: &mockRetriever{}, History: &mockHistoryService{}}).Validate())
}

func TestPorts_DefaultK(t *testing.T) {
	assert.Equal(t, 5, (&Ports{}).defaultK())
	assert.Equal(t, 3, (&Ports{DefaultK: 3}).defaultK())
}
