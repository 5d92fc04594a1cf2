// Package npz persists the index as a numpy .npz archive: a Deflate zip
// holding embeddings.npy (float32, shape N x D) and metadatas.npy (a 0-d
// unicode array containing the metadata records as one JSON string).
package npz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"

	"github.com/custodia-labs/kbindex/internal/core/domain"
	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Verify interface compliance.
var _ driven.IndexStore = (*Store)(nil)

// Archive member names.
const (
	embeddingsEntry = "embeddings.npy"
	metadatasEntry  = "metadatas.npy"
)

// Store reads and writes index artifacts.
type Store struct{}

// NewStore creates an artifact store.
func NewStore() *Store {
	return &Store{}
}

// Save writes idx to path. The archive is written to a temporary file in
// the same directory and renamed over path once synced, so readers never
// observe a partial artifact.
func (s *Store) Save(ctx context.Context, path string, idx *domain.Index) error {
	if idx == nil {
		return fmt.Errorf("%w: nil index", domain.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	metaJSON, err := marshalMetadatas(idx.Metadatas())
	if err != nil {
		return err
	}

	rows := make([][]float32, idx.Len())
	for i := range rows {
		rows[i] = idx.Vector(i)
	}

	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	zw := zip.NewWriter(f)
	if err := writeEntry(zw, embeddingsEntry, encodeMatrix(rows, idx.Dimensions())); err != nil {
		return err
	}
	if err := writeEntry(zw, metadatasEntry, encodeString(metaJSON)); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		committed = true
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	committed = true

	logger.Debug("saved index with %d rows (dimensions %d) to %s", idx.Len(), idx.Dimensions(), path)
	return nil
}

// Load reads the artifact at path. Any failure, including a missing file,
// wraps domain.ErrCorruptIndex.
func (s *Store) Load(ctx context.Context, path string) (*domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrCorruptIndex, path, err)
	}
	defer zr.Close()

	entries := make(map[string][]byte, 2)
	for _, f := range zr.File {
		name := strings.TrimSuffix(f.Name, ".npy")
		if name != "embeddings" && name != "metadatas" {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrCorruptIndex, f.Name, err)
		}
		entries[name] = data
	}

	rawEmb, ok := entries["embeddings"]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no embeddings array", domain.ErrCorruptIndex, path)
	}
	rawMeta, ok := entries["metadatas"]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no metadatas array", domain.ErrCorruptIndex, path)
	}

	embeddings, err := decodeMatrix(rawEmb)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %w", domain.ErrCorruptIndex, err)
	}
	metaJSON, err := decodeString(rawMeta)
	if err != nil {
		return nil, fmt.Errorf("%w: metadatas: %w", domain.ErrCorruptIndex, err)
	}

	var metadatas []domain.ChunkMetadata
	if err := json.Unmarshal([]byte(metaJSON), &metadatas); err != nil {
		return nil, fmt.Errorf("%w: metadatas json: %w", domain.ErrCorruptIndex, err)
	}

	return domain.NewIndex(embeddings, metadatas)
}

func marshalMetadatas(metadatas []domain.ChunkMetadata) (string, error) {
	if metadatas == nil {
		metadatas = []domain.ChunkMetadata{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadatas); err != nil {
		return "", fmt.Errorf("encode metadatas: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
