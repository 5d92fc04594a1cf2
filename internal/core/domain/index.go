package domain

import (
	"fmt"
	"slices"
	"time"
)

// Index is the immutable in-memory form of the index artifact:
// N embedding rows of equal dimension paired with N metadata records.
// Row i of the embeddings corresponds to metadata i.
//
// An Index is only obtained through NewIndex, so every value in circulation
// has passed validation. Nothing mutates an Index after construction, which
// makes it safe to share across concurrent queries.
type Index struct {
	embeddings [][]float32
	metadatas  []ChunkMetadata
	dimensions int
}

// NewIndex validates and copies embeddings and metadatas into an Index.
// Violations wrap ErrCorruptIndex:
//   - len(embeddings) != len(metadatas)
//   - rows of differing or zero dimension
//   - per-source chunk_id not starting at 0 or not increasing by one
func NewIndex(embeddings [][]float32, metadatas []ChunkMetadata) (*Index, error) {
	if len(embeddings) != len(metadatas) {
		return nil, fmt.Errorf("%w: %d embeddings for %d metadata records",
			ErrCorruptIndex, len(embeddings), len(metadatas))
	}

	dims := 0
	rows := make([][]float32, len(embeddings))
	for i, row := range embeddings {
		if i == 0 {
			dims = len(row)
			if dims == 0 {
				return nil, fmt.Errorf("%w: row 0 has zero dimension", ErrCorruptIndex)
			}
		}
		if len(row) != dims {
			return nil, fmt.Errorf("%w: row %d has dimension %d, expected %d",
				ErrCorruptIndex, i, len(row), dims)
		}
		rows[i] = slices.Clone(row)
	}

	if err := checkChunkOrder(metadatas); err != nil {
		return nil, err
	}

	return &Index{
		embeddings: rows,
		metadatas:  slices.Clone(metadatas),
		dimensions: dims,
	}, nil
}

// checkChunkOrder verifies chunk ids run 0, 1, 2, ... within each source.
func checkChunkOrder(metadatas []ChunkMetadata) error {
	next := make(map[string]int)
	for i, m := range metadatas {
		want := next[m.Source]
		if m.ChunkID != want {
			return fmt.Errorf("%w: row %d (%s) has chunk_id %d, expected %d",
				ErrCorruptIndex, i, m.Source, m.ChunkID, want)
		}
		next[m.Source] = want + 1
	}
	return nil
}

// Len returns the number of rows.
func (ix *Index) Len() int {
	return len(ix.metadatas)
}

// Dimensions returns the embedding dimension, or 0 for an empty index.
func (ix *Index) Dimensions() int {
	return ix.dimensions
}

// Vector returns row i. The returned slice is shared and must not be modified.
func (ix *Index) Vector(i int) []float32 {
	return ix.embeddings[i]
}

// Metadata returns metadata record i.
func (ix *Index) Metadata(i int) ChunkMetadata {
	return ix.metadatas[i]
}

// Metadatas returns a copy of all metadata records in row order.
func (ix *Index) Metadatas() []ChunkMetadata {
	return slices.Clone(ix.metadatas)
}

// Sources returns the number of distinct sources in the index.
func (ix *Index) Sources() int {
	seen := make(map[string]struct{})
	for _, m := range ix.metadatas {
		seen[m.Source] = struct{}{}
	}
	return len(seen)
}

// IndexStats summarises the index currently held by a retriever.
type IndexStats struct {
	// Path is the artifact the index was loaded from.
	Path string `json:"path"`

	// Chunks is the number of rows.
	Chunks int `json:"chunks"`

	// Dimensions is the embedding dimension.
	Dimensions int `json:"dimensions"`

	// Sources is the number of distinct sources.
	Sources int `json:"sources"`

	// LoadedAt is when the index was read from disk.
	LoadedAt time.Time `json:"loaded_at"`
}

// RetrievalResult is one ranked hit returned by a query.
type RetrievalResult struct {
	// Metadata is the stored record of the matched chunk.
	Metadata ChunkMetadata `json:"metadata"`

	// Score is the cosine similarity in [-1, 1].
	Score float64 `json:"score"`

	// Row is the row index within the artifact.
	Row int `json:"row"`
}
