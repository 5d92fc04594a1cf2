package domain

import "unicode/utf8"

// PreviewLength is the number of characters kept in ChunkMetadata.TextPreview.
const PreviewLength = 200

// Document is the text of one markdown file or one PDF page.
// Documents are created by the loader, chunked once, then discarded.
type Document struct {
	// Source identifies where the text came from. It is the path relative to
	// the knowledge root, with a "::page_<n>" suffix for PDF pages.
	Source string

	// Title is the derived human-readable title.
	Title string

	// Text is the full document text before chunking.
	Text string
}

// Chunk is a bounded span of a document's text.
// It is the unit that is embedded and retrieved.
type Chunk struct {
	// Source is the owning document's source identifier.
	Source string

	// ChunkID is the 0-based position within the owning document.
	ChunkID int

	// Title is the owning document's title.
	Title string

	// Text is the chunk content.
	Text string
}

// Preview returns the first PreviewLength characters of the chunk text.
func (c Chunk) Preview() string {
	return Preview(c.Text)
}

// Metadata returns the persisted metadata record for this chunk.
func (c Chunk) Metadata() ChunkMetadata {
	title := c.Title
	return ChunkMetadata{
		Source:      c.Source,
		Title:       &title,
		ChunkID:     c.ChunkID,
		Text:        c.Text,
		TextPreview: c.Preview(),
	}
}

// ChunkMetadata is the record stored next to each embedding row.
// Field names match the JSON layout of the index artifact.
type ChunkMetadata struct {
	Source      string  `json:"source"`
	Title       *string `json:"title"`
	ChunkID     int     `json:"chunk_id"`
	Text        string  `json:"text"`
	TextPreview string  `json:"text_preview"`
}

// DisplayTitle returns the title, falling back to the source when unset.
func (m ChunkMetadata) DisplayTitle() string {
	if m.Title == nil || *m.Title == "" {
		return m.Source
	}
	return *m.Title
}

// RawDocument is a file handed from the loader to a normaliser.
type RawDocument struct {
	// Path is the absolute filesystem path.
	Path string

	// RelPath is the path relative to the knowledge root, used as the source id.
	RelPath string

	// MIMEType is the detected or extension-derived content type.
	MIMEType string

	// Content is the raw file bytes.
	Content []byte
}

// Preview truncates text to PreviewLength characters without splitting runes.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength])
}
