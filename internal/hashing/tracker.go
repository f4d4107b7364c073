package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

// historyCap bounds the per-file hash history; the oldest entry is evicted
// past the cap.
const historyCap = 10

// Record holds the tracked state for one file.
type Record struct {
	Path        string
	CurrentHash string
	History     []string
}

// Tracker detects file changes by content hash. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	records map[string]*Record
}

func NewTracker() *Tracker {
	return &Tracker{records: make(map[string]*Record)}
}

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// CalculateFileHash returns the content digest of the file at path, or ""
// when the file cannot be read. A missing file is not an error here so that
// batch operations tolerate transient filesystem races.
func (t *Tracker) CalculateFileHash(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return Sum(data)
}

// TrackFileHash computes the file's hash, stores it as current, and appends
// it to the bounded history. Returns the hash ("" if the file is unreadable).
func (t *Tracker) TrackFileHash(path string) string {
	hash := t.CalculateFileHash(path)
	if hash == "" {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.store(path, hash)
	return hash
}

// HasFileChanged recomputes the file's hash and compares it to the stored
// one. A differing hash updates the record and returns true. An untracked
// file is treated as new, which counts as changed.
func (t *Tracker) HasFileChanged(path string) bool {
	hash := t.CalculateFileHash(path)
	if hash == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[path]
	if !ok {
		t.store(path, hash)
		return true
	}
	if rec.CurrentHash == hash {
		return false
	}
	t.store(path, hash)
	return true
}

// IsTracked reports whether path has been seen before.
func (t *Tracker) IsTracked(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.records[path]
	return ok
}

// CurrentHash returns the stored hash for path, or "" if untracked.
func (t *Tracker) CurrentHash(path string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[path]; ok {
		return rec.CurrentHash
	}
	return ""
}

// History returns a copy of the bounded hash history for path.
func (t *Tracker) History(path string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[path]
	if !ok {
		return nil
	}
	out := make([]string, len(rec.History))
	copy(out, rec.History)
	return out
}

// GetChangedFiles returns the tracked files in paths whose content differs
// from the stored hash. New (untracked) files are not included. The stored
// state is never updated here; callers record hashes with TrackFileHash once
// the file has actually been processed.
func (t *Tracker) GetChangedFiles(paths []string) []string {
	var changed []string
	for _, path := range paths {
		hash := t.CalculateFileHash(path)
		if hash == "" {
			continue
		}
		t.mu.Lock()
		if rec, tracked := t.records[path]; tracked && rec.CurrentHash != hash {
			changed = append(changed, path)
		}
		t.mu.Unlock()
	}
	return changed
}

// GetNewFiles returns the files in paths that were not tracked before,
// without updating the stored state.
func (t *Tracker) GetNewFiles(paths []string) []string {
	var fresh []string
	for _, path := range paths {
		if t.CalculateFileHash(path) == "" {
			continue
		}
		t.mu.Lock()
		if _, tracked := t.records[path]; !tracked {
			fresh = append(fresh, path)
		}
		t.mu.Unlock()
	}
	return fresh
}

// store must be called with the lock held.
func (t *Tracker) store(path, hash string) {
	rec, ok := t.records[path]
	if !ok {
		rec = &Record{Path: path}
		t.records[path] = rec
	}
	rec.CurrentHash = hash
	rec.History = append(rec.History, hash)
	if len(rec.History) > historyCap {
		rec.History = rec.History[len(rec.History)-historyCap:]
	}
}
