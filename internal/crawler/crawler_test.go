package crawler

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkFile(t *testing.T, root, rel string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
	return path
}

func TestCrawler_ScanProject(t *testing.T) {
	root := t.TempDir()
	keepGo := mkFile(t, root, "internal/server.go")
	keepJava := mkFile(t, root, "src/Main.java")
	mkFile(t, root, "internal/server_test.go")
	mkFile(t, root, "README.md")
	mkFile(t, root, "vendor/dep/dep.go")
	mkFile(t, root, ".git/objects/blob.go")

	c := New(map[string]bool{"go": true, "java": true}, nil)
	files, err := c.ScanProject(root)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{keepGo, keepJava}, files)
}

func TestCrawler_Matches(t *testing.T) {
	c := New(map[string]bool{"go": true}, []string{"vendor"})

	assert.True(t, c.Matches("/x/y/main.go"))
	assert.False(t, c.Matches("/x/y/main_test.go"))
	assert.False(t, c.Matches("/x/y/readme.md"))
	assert.False(t, c.Matches("/x/vendor/dep/dep.go"))
}
