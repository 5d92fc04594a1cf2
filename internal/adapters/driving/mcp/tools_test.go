package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func sampleResults() []domain.RetrievalResult {
	return []domain.RetrievalResult{
		{
			Metadata: domain.ChunkMetadata{Source: "papers/sleep.md", Title: strPtr("Sleep"), ChunkID: 2, Text: "Adults need 7-9 hours."},
			Score:    0.91,
			Row:      7,
		},
		{
			Metadata: domain.ChunkMetadata{Source: "papers/notes.md", Title: nil, ChunkID: 0, Text: "Untitled note."},
			Score:    0.4,
			Row:      1,
		},
	}
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns chunks", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{results: sampleResults()}})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "how much sleep", K: 2})

		require.NoError(t, err)
		assert.Equal(t, 2, output.RetrievedCount)
		require.Len(t, output.Chunks, 2)
		assert.Equal(t, "papers/sleep.md", output.Chunks[0].Source)
		assert.Equal(t, "Sleep", *output.Chunks[0].Title)
		assert.Equal(t, 2, output.Chunks[0].ChunkID)
		assert.Equal(t, "Adults need 7-9 hours.", output.Chunks[0].Text)
		assert.Equal(t, 0.91, output.Chunks[0].Score)
		assert.Nil(t, output.Chunks[1].Title)
	})

	t.Run("default k", func(t *testing.T) {
		retriever := &mockRetriever{}
		server, err := NewServer(&Ports{Retriever: retriever, DefaultK: 4})
		require.NoError(t, err)

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})

		require.NoError(t, err)
		assert.Equal(t, 4, retriever.lastK)
		assert.Equal(t, 0, output.RetrievedCount)
		assert.NotNil(t, output.Chunks)
	})

	t.Run("empty query", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "  "})
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("propagates retriever errors", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{err: domain.ErrIndexNotLoaded}})
		require.NoError(t, err)

		_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrIndexNotLoaded)
	})
}

func TestRetrieveOutput_JSONShape(t *testing.T) {
	out := RetrieveOutput{
		Chunks:         []RetrievedChunk{{Source: "s", Title: nil, ChunkID: 1, Text: "t", Score: 0.5}},
		RetrievedCount: 1,
	}

	data, err := json.Marshal(out)

	require.NoError(t, err)
	assert.JSONEq(t,
		`{"chunks":[{"source":"s","title":null,"chunk_id":1,"text":"t","score":0.5}],"retrieved_count":1}`,
		string(data))
}
