// Package mcp provides an MCP (Model Context Protocol) server adapter for kbindex.
// It lets AI assistants retrieve knowledge-base chunks as generation context.
package mcp

import "errors"

// ErrMissingRetriever is returned when the retriever is not provided.
var ErrMissingRetriever = errors.New("mcp: retriever is required")

// ErrEmptyQuery is returned when the retrieve tool is called without a query.
var ErrEmptyQuery = errors.New("mcp: query must not be empty")
