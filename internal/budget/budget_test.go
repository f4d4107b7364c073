package budget

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestBudget_Accounting(t *testing.T) {
	m := NewManager(100)
	b := m.CreateBudget("find the config loader")

	t.Run("query tokens charged up front", func(t *testing.T) {
		assert.Equal(t, EstimateTokens("find the config loader"), b.UsedTokens)
		assert.Equal(t, b.MaxTokens, b.UsedTokens+b.RemainingTokens)
	})

	t.Run("add keeps the arithmetic", func(t *testing.T) {
		text := strings.Repeat("x", 40)
		require.True(t, b.CanAdd(text))
		b.Add(text)
		assert.Equal(t, b.MaxTokens, b.UsedTokens+b.RemainingTokens)
	})

	t.Run("oversized content rejected by CanAdd", func(t *testing.T) {
		assert.False(t, b.CanAdd(strings.Repeat("y", 4000)))
	})

	t.Run("clamped add never exceeds the max", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 10)
		b.AddClamped(strings.Repeat("x", 400)) // 100 tokens against a budget of 10
		assert.Equal(t, 10, b.UsedTokens)
		assert.Zero(t, b.RemainingTokens)
		assert.Equal(t, b.MaxTokens, b.UsedTokens+b.RemainingTokens)
	})

	t.Run("clamped add of fitting content charges in full", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 10)
		b.AddClamped("abcd") // 1 token
		assert.Equal(t, 1, b.UsedTokens)
		assert.Equal(t, 9, b.RemainingTokens)
	})

	t.Run("near and over limit", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 10)
		assert.False(t, b.NearLimit())
		b.Add(strings.Repeat("z", 36)) // 9 tokens
		assert.True(t, b.NearLimit())
		assert.False(t, b.OverLimit())
		b.Add("zzzz")
		assert.True(t, b.OverLimit())
	})
}

func TestBudget_QueryLongerThanBudget(t *testing.T) {
	m := NewManager(100)
	b := m.CreateBudgetWithMax(strings.Repeat("q", 400), 10)
	assert.Equal(t, 10, b.UsedTokens)
	assert.Equal(t, 0, b.RemainingTokens)
	assert.Equal(t, b.MaxTokens, b.UsedTokens+b.RemainingTokens)
}

func TestManager_PrioritizeFiles(t *testing.T) {
	m := NewManager(8000)

	t.Run("camel case filenames match query words", func(t *testing.T) {
		files := []string{"README.md", "ChatService.java", "AppConfig.java", "Makefile"}
		got := m.PrioritizeFiles(files, "how does the chat service read its config")
		require.NotEmpty(t, got)
		assert.Equal(t, "ChatService.java", got[0])
		assert.Contains(t, got, "AppConfig.java")
		assert.NotContains(t, got, "README.md")
	})

	t.Run("no scores preserves input order", func(t *testing.T) {
		files := []string{"b.go", "a.go"}
		assert.Equal(t, files, m.PrioritizeFiles(files, "zzz qqq"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, m.PrioritizeFiles(nil, "anything"))
	})
}

func TestManager_PruneContent(t *testing.T) {
	m := NewManager(8000)

	t.Run("everything fits, input unchanged", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 1000)
		items := []ContentItem{
			{Filename: "a.go", Text: "short"},
			{Filename: "b.go", Text: "also short"},
		}
		assert.Equal(t, items, m.PruneContent(items, b, "query"))
	})

	t.Run("over budget keeps most relevant first", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 30)
		items := []ContentItem{
			{Filename: "Noise.java", Text: strings.Repeat("filler ", 20)},
			{Filename: "PaymentService.java", Text: "payment service handles charges " + strings.Repeat("x", 60)},
		}
		kept := m.PruneContent(items, b, "payment service")
		require.NotEmpty(t, kept)
		assert.Equal(t, "PaymentService.java", kept[0].Filename)
	})

	t.Run("never prunes to nothing", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 5)
		items := []ContentItem{{Filename: "big.go", Text: strings.Repeat("w", 400)}}
		kept := m.PruneContent(items, b, "query")
		assert.Len(t, kept, 1, "the single most relevant item survives even over budget")
	})

	t.Run("empty input stays empty", func(t *testing.T) {
		b := m.CreateBudgetWithMax("", 100)
		assert.Empty(t, m.PruneContent(nil, b, "query"))
	})
}
