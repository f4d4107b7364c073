package chunker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/chunker"
	"codescout/internal/chunker/languages"
)

func goChunker() *chunker.Chunker {
	r := chunker.NewRegistry()
	languages.RegisterGo(r)
	return chunker.New(r)
}

func TestChunker_GoSource(t *testing.T) {
	src := []byte(`package cart

type Cart struct {
	items []string
}

func NewCart() *Cart {
	return &Cart{}
}

func (c *Cart) Add(item string) {
	c.items = append(c.items, item)
}
`)

	chunks, err := goChunker().Chunk("cart.go", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	byName := make(map[string]chunker.Chunk)
	for _, c := range chunks {
		byName[c.Name] = c
	}

	t.Run("type becomes a class chunk", func(t *testing.T) {
		cart, ok := byName["Cart"]
		require.True(t, ok)
		assert.Equal(t, "class", cart.Kind)
		assert.Equal(t, 3, cart.StartLine)
		assert.Contains(t, cart.Content, "items []string")
	})

	t.Run("functions and methods become method chunks", func(t *testing.T) {
		for _, name := range []string{"NewCart", "Add"} {
			c, ok := byName[name]
			require.True(t, ok, name)
			assert.Equal(t, "method", c.Kind)
			assert.NotEmpty(t, c.Content)
			assert.LessOrEqual(t, c.StartLine, c.EndLine)
		}
	})
}

func TestChunker_Symbols(t *testing.T) {
	src := []byte(`package pricing

type Price struct{}

func Total() int { return 0 }
`)
	symbols, err := goChunker().Symbols("pricing.go", src)
	require.NoError(t, err)

	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.ElementsMatch(t, []string{"Price", "Total"}, names)
}

func TestChunker_FallbackForUnknownLanguage(t *testing.T) {
	c := chunker.New(chunker.NewRegistry())

	src := []byte(`import os

class Invoice:
    def total(self):
        return 0

def render(invoice):
    pass
`)
	chunks, err := c.Chunk("billing.py", src)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "Invoice", chunks[0].Name)
	assert.Equal(t, "total", chunks[1].Name)
	assert.Equal(t, "render", chunks[2].Name)

	t.Run("no definitions yields no chunks", func(t *testing.T) {
		chunks, err := c.Chunk("notes.txt", []byte("just prose, nothing else"))
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestRegistry_Lookup(t *testing.T) {
	r := chunker.NewRegistry()
	languages.RegisterGo(r)
	languages.RegisterJava(r)

	spec, name := r.Lookup("pkg/server.go")
	require.NotNil(t, spec)
	assert.Equal(t, "go", name)

	spec, _ = r.Lookup("src/Main.java")
	require.NotNil(t, spec)

	spec, _ = r.Lookup("script.rb")
	assert.Nil(t, spec)

	exts := r.Extensions()
	assert.True(t, exts["go"])
	assert.True(t, exts["java"])
}
