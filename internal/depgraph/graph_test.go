package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_EdgeSymmetry(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a.go", "b.go")
	g.AddEdge("a.go", "c.go")
	g.AddEdge("b.go", "c.go")

	assert.Equal(t, []string{"b.go", "c.go"}, g.GetDependencies("a.go"))
	assert.Equal(t, []string{"a.go"}, g.GetReverseDependencies("b.go"))
	assert.Equal(t, []string{"a.go", "b.go"}, g.GetReverseDependencies("c.go"))
	assert.Equal(t, 3, g.EdgeCount())

	t.Run("every forward edge has a reverse mirror", func(t *testing.T) {
		for _, from := range g.Files() {
			for _, to := range g.GetDependencies(from) {
				assert.Contains(t, g.GetReverseDependencies(to), from)
			}
		}
	})

	t.Run("self edges ignored", func(t *testing.T) {
		g.AddEdge("a.go", "a.go")
		assert.Equal(t, 3, g.EdgeCount())
	})

	t.Run("duplicate edges collapse", func(t *testing.T) {
		g.AddEdge("a.go", "b.go")
		assert.Equal(t, 3, g.EdgeCount())
	})
}

func TestGraph_Expand(t *testing.T) {
	// a -> b -> c -> d, plus x -> a
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "d")
	g.AddEdge("x", "a")

	t.Run("zero hops returns seeds only", func(t *testing.T) {
		assert.Equal(t, []string{"a"}, g.Expand([]string{"a"}, 0, false))
	})

	t.Run("bounded by hop count", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b"}, g.Expand([]string{"a"}, 1, false))
		assert.Equal(t, []string{"a", "b", "c"}, g.Expand([]string{"a"}, 2, false))
	})

	t.Run("reverse edges included on demand", func(t *testing.T) {
		assert.Equal(t, []string{"a", "b", "x"}, g.Expand([]string{"a"}, 1, true))
	})

	t.Run("seeds are deduplicated", func(t *testing.T) {
		got := g.Expand([]string{"a", "a", ""}, 1, false)
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("unknown seed expands to itself", func(t *testing.T) {
		assert.Equal(t, []string{"nope"}, g.Expand([]string{"nope"}, 3, true))
	})
}

func TestGraph_Has(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")

	assert.True(t, g.Has("a"))
	assert.True(t, g.Has("b"))
	assert.False(t, g.Has("c"))
}

func TestHolder_SwapIsVisible(t *testing.T) {
	h := NewHolder()
	require.NotNil(t, h.Current())
	assert.Equal(t, 0, h.Current().EdgeCount())

	g := NewGraph()
	g.AddEdge("a", "b")
	h.Swap(g)
	assert.Equal(t, 1, h.Current().EdgeCount())

	t.Run("nil swap keeps the old graph", func(t *testing.T) {
		h.Swap(nil)
		assert.Equal(t, 1, h.Current().EdgeCount())
	})
}
