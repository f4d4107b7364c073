package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codescout/internal/apperr"
)

const (
	blobFile   = "embeddings.bin"
	markerFile = "corpus.hash"
)

// Manager guards the corpus-level embedding cache: a blob of persisted
// embedding state plus a hash marker. The marker is an aggregate,
// order-independent digest over the whole corpus; when it no longer matches,
// the cache is invalidated wholesale. File-level granularity lives in the
// incremental layer on top.
type Manager struct {
	dir string
}

func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// ComputeCorpusHash combines per-file content hashes into one aggregate
// digest. The inputs are sorted first, so the result is independent of
// traversal order.
func ComputeCorpusHash(fileHashes []string) string {
	sorted := make([]string, len(fileHashes))
	copy(sorted, fileHashes)
	sort.Strings(sorted)

	h := sha256.New()
	for _, fh := range sorted {
		h.Write([]byte(fh))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CacheFileExists reports whether both the embeddings blob and the hash
// marker are present. One without the other counts as no cache.
func (m *Manager) CacheFileExists() bool {
	if _, err := os.Stat(filepath.Join(m.dir, blobFile)); err != nil {
		return false
	}
	if _, err := os.Stat(filepath.Join(m.dir, markerFile)); err != nil {
		return false
	}
	return true
}

// IsCacheValid reports whether the stored marker equals hash. A missing or
// unreadable marker is simply invalid.
func (m *Manager) IsCacheValid(hash string) bool {
	if !m.CacheFileExists() {
		return false
	}
	stored, err := os.ReadFile(filepath.Join(m.dir, markerFile))
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(stored)) == hash
}

// SaveToCache writes the embeddings blob and the hash marker, creating the
// cache directory if absent. The marker is written last so a partial write
// leaves the cache invalid rather than wrongly valid.
func (m *Manager) SaveToCache(data []byte, hash string) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("%w: create cache dir: %v", apperr.ErrBackendFailure, err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, blobFile), data, 0o644); err != nil {
		return fmt.Errorf("%w: write embeddings blob: %v", apperr.ErrBackendFailure, err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, markerFile), []byte(hash), 0o644); err != nil {
		return fmt.Errorf("%w: write hash marker: %v", apperr.ErrBackendFailure, err)
	}
	return nil
}

// LoadFromCache returns the embeddings blob.
func (m *Manager) LoadFromCache() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, blobFile))
	if err != nil {
		return nil, fmt.Errorf("%w: read embeddings blob: %v", apperr.ErrNotFound, err)
	}
	return data, nil
}

// ClearCache removes the cache directory and everything in it.
func (m *Manager) ClearCache() error {
	return os.RemoveAll(m.dir)
}
