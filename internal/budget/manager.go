package budget

import (
	"regexp"
	"sort"
	"strings"
)

// ContentItem is a budgeted piece of retrieved context.
type ContentItem struct {
	Filename string
	Text     string
}

// Manager creates budgets and ranks retrieved content against them.
type Manager struct {
	maxTokens int
}

func NewManager(maxTokens int) *Manager {
	if maxTokens <= 0 {
		maxTokens = 8000
	}
	return &Manager{maxTokens: maxTokens}
}

// CreateBudget initializes a budget with the configured maximum, charging the
// query's own estimated tokens up front.
func (m *Manager) CreateBudget(query string) *Budget {
	return m.CreateBudgetWithMax(query, m.maxTokens)
}

// CreateBudgetWithMax is CreateBudget with an explicit cap, used when a
// search plan carries its own token budget.
func (m *Manager) CreateBudgetWithMax(query string, maxTokens int) *Budget {
	if maxTokens <= 0 {
		maxTokens = m.maxTokens
	}
	used := EstimateTokens(query)
	if used > maxTokens {
		used = maxTokens
	}
	return &Budget{
		MaxTokens:       maxTokens,
		UsedTokens:      used,
		RemainingTokens: maxTokens - used,
	}
}

// PrioritizeFiles orders files by lexical overlap with the query, most
// relevant first. Files scoring zero are dropped, unless nothing scores at
// all, in which case the input order is preserved. The sort is stable.
func (m *Manager) PrioritizeFiles(files []string, query string) []string {
	type scored struct {
		file  string
		score float64
		pos   int
	}

	terms := queryTerms(query)
	items := make([]scored, 0, len(files))
	anyScore := false
	for i, f := range files {
		s := relevanceScore(f, "", terms)
		if s > 0 {
			anyScore = true
		}
		items = append(items, scored{file: f, score: s, pos: i})
	}

	if !anyScore {
		out := make([]string, len(files))
		copy(out, files)
		return out
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]string, 0, len(items))
	for _, it := range items {
		if it.score <= 0 {
			continue
		}
		out = append(out, it.file)
	}
	return out
}

// PruneContent selects items to fit the remaining budget. When everything
// fits, the input is returned unchanged. Otherwise items are taken greedily
// in relevance order; the single most relevant item is always kept, even if
// it alone exceeds the budget, so non-empty input never prunes to nothing.
func (m *Manager) PruneContent(items []ContentItem, b *Budget, query string) []ContentItem {
	if len(items) == 0 {
		return items
	}

	total := 0
	for _, it := range items {
		total += EstimateTokens(it.Text)
	}
	if total <= b.RemainingTokens {
		return items
	}

	terms := queryTerms(query)
	type scored struct {
		item  ContentItem
		score float64
	}
	ranked := make([]scored, 0, len(items))
	for _, it := range items {
		ranked = append(ranked, scored{item: it, score: relevanceScore(it.Filename, it.Text, terms)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	kept := []ContentItem{ranked[0].item}
	remaining := b.RemainingTokens - EstimateTokens(ranked[0].item.Text)
	for _, r := range ranked[1:] {
		n := EstimateTokens(r.item.Text)
		if n > remaining {
			continue
		}
		kept = append(kept, r.item)
		remaining -= n
	}
	return kept
}

var termSplitRe = regexp.MustCompile(`[^a-z0-9]+`)

func queryTerms(query string) []string {
	var terms []string
	for _, t := range termSplitRe.Split(strings.ToLower(query), -1) {
		if len(t) >= 3 {
			terms = append(terms, t)
		}
	}
	return terms
}

// camelSplitRe breaks CamelCase identifiers so "ChatService.java" yields
// "chat" and "service".
var camelSplitRe = regexp.MustCompile(`[A-Z]?[a-z0-9]+|[A-Z]+`)

func fileTokens(filename, text string) map[string]int {
	tokens := make(map[string]int)
	for _, t := range camelSplitRe.FindAllString(filename, -1) {
		tokens[strings.ToLower(t)] += 3 // filename hits weigh more
	}
	if text != "" {
		sample := text
		if len(sample) > 2000 {
			sample = sample[:2000]
		}
		for _, t := range camelSplitRe.FindAllString(sample, -1) {
			tokens[strings.ToLower(t)]++
		}
	}
	return tokens
}

func relevanceScore(filename, text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	tokens := fileTokens(filename, text)
	score := 0.0
	for _, term := range terms {
		if w, ok := tokens[term]; ok {
			score += float64(w)
		}
	}
	return score / float64(len(terms))
}
