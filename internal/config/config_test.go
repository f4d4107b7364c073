package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, 768, cfg.AI.Dimension)
	assert.Equal(t, 8000, cfg.Retrieval.MaxTokens)
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, Default().Store.DBPath, cfg.Store.DBPath)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codescout.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
project:
  root: /srv/app
store:
  db_path: custom.db
retrieval:
  max_tokens: 12000
`), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "/srv/app", cfg.Project.Root)
		assert.Equal(t, "custom.db", cfg.Store.DBPath)
		assert.Equal(t, 12000, cfg.Retrieval.MaxTokens)
		assert.Equal(t, Default().AI.Dimension, cfg.AI.Dimension, "untouched fields keep defaults")
	})

	t.Run("environment wins over yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codescout.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store:\n  db_path: from-yaml.db\n"), 0o644))
		t.Setenv("CODESCOUT_DB", "from-env.db")
		t.Setenv("CODESCOUT_DIMENSION", "1024")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env.db", cfg.Store.DBPath)
		assert.Equal(t, 1024, cfg.AI.Dimension)
	})

	t.Run("invalid yaml fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store: [not a mapping"), 0o644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("zero dimension rejected", func(t *testing.T) {
		cfg := Default()
		cfg.AI.Dimension = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero max tokens rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Retrieval.MaxTokens = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty root rejected", func(t *testing.T) {
		cfg := Default()
		cfg.Project.Root = ""
		assert.Error(t, cfg.Validate())
	})
}
