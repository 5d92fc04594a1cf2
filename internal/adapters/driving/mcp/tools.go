package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the user text to find relevant knowledge-base passages for"`
	K     int    `json:"k,omitempty" jsonschema:"number of chunks to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks         []RetrievedChunk `json:"chunks"`
	RetrievedCount int              `json:"retrieved_count"`
}

// RetrievedChunk is one ranked chunk.
type RetrievedChunk struct {
	Source  string  `json:"source"`
	Title   *string `json:"title"`
	ChunkID int     `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the knowledge-base chunks most similar to a query, for use as answer context",
	}, s.handleRetrieve)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, RetrieveOutput{}, ErrEmptyQuery
	}

	k := input.K
	if k <= 0 {
		k = s.ports.defaultK()
	}

	results, err := s.ports.Retriever.Query(ctx, input.Query, k)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	return nil, NewRetrieveOutput(results), nil
}

// NewRetrieveOutput converts ranked results into the consumer-facing shape.
func NewRetrieveOutput(results []domain.RetrievalResult) RetrieveOutput {
	output := RetrieveOutput{
		Chunks:         make([]RetrievedChunk, len(results)),
		RetrievedCount: len(results),
	}
	for i := range results {
		m := results[i].Metadata
		output.Chunks[i] = RetrievedChunk{
			Source:  m.Source,
			Title:   m.Title,
			ChunkID: m.ChunkID,
			Text:    m.Text,
			Score:   results[i].Score,
		}
	}
	return output
}
