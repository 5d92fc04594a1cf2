package filesystem

import (
	"path/filepath"
	"strings"
)

// pageMarker separates a PDF path from its page suffix in a document source.
const pageMarker = "::page_"

// ResolveSourcePath converts a chunk source back to a local file path for
// opening. PDF page suffixes are stripped and relative sources are joined
// to the knowledge root.
func ResolveSourcePath(root, source string) string {
	if i := strings.Index(source, pageMarker); i >= 0 {
		source = source[:i]
	}
	// file:// URIs are accepted for sources written by older tools
	source = strings.TrimPrefix(source, "file://")
	if source == "" || filepath.IsAbs(source) || root == "" {
		return filepath.FromSlash(source)
	}
	return filepath.Join(root, filepath.FromSlash(source))
}
