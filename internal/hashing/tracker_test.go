package hashing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTracker_ChangeDetection(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker()
	path := writeFile(t, dir, "service.go", "package service\n")

	t.Run("tracked then unchanged", func(t *testing.T) {
		hash := tracker.TrackFileHash(path)
		require.NotEmpty(t, hash)
		assert.True(t, tracker.IsTracked(path))
		assert.False(t, tracker.HasFileChanged(path), "same content should not register as changed")
	})

	t.Run("mutation registers as changed", func(t *testing.T) {
		writeFile(t, dir, "service.go", "package service\n\nfunc New() {}\n")
		assert.True(t, tracker.HasFileChanged(path))
		assert.False(t, tracker.HasFileChanged(path), "second check after update should be clean")
	})

	t.Run("untracked file counts as changed", func(t *testing.T) {
		other := writeFile(t, dir, "other.go", "package other\n")
		assert.True(t, tracker.HasFileChanged(other))
		assert.True(t, tracker.IsTracked(other))
	})

	t.Run("unreadable file never changes", func(t *testing.T) {
		assert.False(t, tracker.HasFileChanged(filepath.Join(dir, "missing.go")))
	})
}

func TestTracker_History(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker()
	path := writeFile(t, dir, "a.go", "v1")

	first := tracker.TrackFileHash(path)
	writeFile(t, dir, "a.go", "v2")
	second := tracker.TrackFileHash(path)

	history := tracker.History(path)
	require.Len(t, history, 2)
	assert.Equal(t, first, history[0])
	assert.Equal(t, second, history[1])
	assert.Equal(t, second, tracker.CurrentHash(path))
}

func TestTracker_HistoryBounded(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker()
	path := filepath.Join(dir, "a.go")

	for i := 0; i < historyCap+5; i++ {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
		tracker.TrackFileHash(path)
	}
	assert.Len(t, tracker.History(path), historyCap)
}

func TestTracker_ClassifiersAreDisjoint(t *testing.T) {
	dir := t.TempDir()
	tracker := NewTracker()

	tracked := writeFile(t, dir, "tracked.go", "v1")
	tracker.TrackFileHash(tracked)
	writeFile(t, dir, "tracked.go", "v2")
	brandNew := writeFile(t, dir, "new.go", "x")

	paths := []string{tracked, brandNew}
	changed := tracker.GetChangedFiles(paths)
	fresh := tracker.GetNewFiles(paths)

	assert.Equal(t, []string{tracked}, changed)
	assert.Equal(t, []string{brandNew}, fresh)
	for _, c := range changed {
		assert.NotContains(t, fresh, c, "a file must not be both changed and new")
	}

	t.Run("classifiers do not mutate state", func(t *testing.T) {
		assert.Equal(t, []string{tracked}, tracker.GetChangedFiles(paths))
		assert.Equal(t, []string{brandNew}, tracker.GetNewFiles(paths))
	})
}
