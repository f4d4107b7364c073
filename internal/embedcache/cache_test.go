package embedcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCorpusHash(t *testing.T) {
	t.Run("order independent", func(t *testing.T) {
		a := ComputeCorpusHash([]string{"h1", "h2", "h3"})
		b := ComputeCorpusHash([]string{"h3", "h1", "h2"})
		assert.Equal(t, a, b)
	})

	t.Run("content sensitive", func(t *testing.T) {
		a := ComputeCorpusHash([]string{"h1", "h2"})
		b := ComputeCorpusHash([]string{"h1", "h2", "h3"})
		assert.NotEqual(t, a, b)
	})

	t.Run("empty corpus is stable", func(t *testing.T) {
		assert.Equal(t, ComputeCorpusHash(nil), ComputeCorpusHash([]string{}))
	})
}

func TestManager_CacheLifecycle(t *testing.T) {
	m := NewManager(t.TempDir() + "/cache")
	corpus := ComputeCorpusHash([]string{"a", "b"})

	assert.False(t, m.CacheFileExists())
	assert.False(t, m.IsCacheValid(corpus))

	require.NoError(t, m.SaveToCache([]byte("blob"), corpus))
	assert.True(t, m.CacheFileExists())
	assert.True(t, m.IsCacheValid(corpus))

	t.Run("different corpus invalidates", func(t *testing.T) {
		other := ComputeCorpusHash([]string{"a", "b", "c"})
		assert.False(t, m.IsCacheValid(other))
	})

	t.Run("load returns the blob", func(t *testing.T) {
		data, err := m.LoadFromCache()
		require.NoError(t, err)
		assert.Equal(t, []byte("blob"), data)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		require.NoError(t, m.ClearCache())
		assert.False(t, m.CacheFileExists())
		_, err := m.LoadFromCache()
		assert.Error(t, err)
	})
}
