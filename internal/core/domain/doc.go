// Package domain defines the core entities of the knowledge-base indexer.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: Text loaded from one source file or PDF page
//   - Chunk: A bounded span of a document, the unit that gets embedded
//   - ChunkMetadata: The per-row record persisted next to each embedding
//   - Index: The immutable pairing of embeddings and metadata
//   - EmbeddingConfig: The resolved Remote or Local provider selection
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
