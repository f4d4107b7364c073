package retriever

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codescout/internal/budget"
	"codescout/internal/depgraph"
	"codescout/internal/indexer"
	"codescout/internal/planner"
)

// fakeTier serves canned documents for both index tiers.
type fakeTier struct {
	docs    []indexer.Document
	byFile  map[string][]indexer.Document
	err     error
	queries []string
	filters [][]string
}

func (f *fakeTier) Search(_ context.Context, query string, topK int, fileFilter []string) ([]indexer.Document, error) {
	f.queries = append(f.queries, query)
	f.filters = append(f.filters, fileFilter)
	if f.err != nil {
		return nil, f.err
	}
	filter := make(map[string]bool, len(fileFilter))
	for _, ff := range fileFilter {
		filter[ff] = true
	}
	var out []indexer.Document
	for _, d := range f.docs {
		if len(filter) > 0 && !filter[d.Filename] {
			continue
		}
		if len(out) >= topK {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeTier) ForFile(_ context.Context, filename string) ([]indexer.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byFile[filename], nil
}

func newTestService(summaries, chunks *fakeTier, g *depgraph.Graph) *Service {
	holder := depgraph.NewHolder()
	if g != nil {
		holder.Swap(g)
	}
	return NewService(planner.New(), budget.NewManager(8000), holder, summaries, chunks, 0, nil)
}

func summaryDoc(id, file, text string) indexer.Document {
	return indexer.Document{ID: id, Filename: file, ChunkType: indexer.ChunkTypeFileSummary, Text: text, Score: 0.9}
}

func chunkDoc(id, file, text string) indexer.Document {
	return indexer.Document{ID: id, Filename: file, ChunkType: indexer.ChunkTypeMethod, Text: text, Score: 0.8}
}

func TestService_RetrieveCodeContext(t *testing.T) {
	summaries := &fakeTier{docs: []indexer.Document{
		summaryDoc("summary:1", "PaymentService.java", "Handles payment processing and refunds."),
	}}
	chunks := &fakeTier{docs: []indexer.Document{
		chunkDoc("chunk:1", "PaymentService.java", "public void charge() {}"),
	}}
	svc := newTestService(summaries, chunks, nil)

	result := svc.RetrieveCodeContext(context.Background(), "how does payment processing work")

	require.False(t, result.IsEmpty())
	assert.Contains(t, result.RelevantFiles, "PaymentService.java")
	require.Len(t, result.FileSummaries, 1)
	assert.Equal(t, "PaymentService.java", result.FileSummaries[0].Filename)
	require.Len(t, result.CodeChunks, 1)
	assert.NotEmpty(t, result.SearchStrategy)
	assert.Positive(t, result.UsedTokens)
	assert.LessOrEqual(t, result.UsedTokens, result.MaxTokens)
}

func TestService_EmptyWhenNothingMatches(t *testing.T) {
	svc := newTestService(&fakeTier{}, &fakeTier{}, nil)

	result := svc.RetrieveCodeContext(context.Background(), "anything at all")

	assert.True(t, result.IsEmpty())
	assert.Empty(t, result.RelevantFiles)
	assert.Empty(t, result.FileSummaries)
	assert.Equal(t, "anything at all", result.Query)
}

func TestService_BackendFailureDegradesToEmpty(t *testing.T) {
	t.Run("summary tier down", func(t *testing.T) {
		summaries := &fakeTier{err: errors.New("connection refused")}
		svc := newTestService(summaries, &fakeTier{}, nil)
		result := svc.RetrieveCodeContext(context.Background(), "payments")
		assert.True(t, result.IsEmpty())
	})

	t.Run("chunk tier down keeps summaries", func(t *testing.T) {
		summaries := &fakeTier{docs: []indexer.Document{
			summaryDoc("summary:1", "a.go", "summary text"),
		}}
		chunks := &fakeTier{err: errors.New("connection refused")}
		svc := newTestService(summaries, chunks, nil)

		result := svc.RetrieveCodeContext(context.Background(), "anything")
		require.False(t, result.IsEmpty())
		assert.Len(t, result.FileSummaries, 1)
		assert.Empty(t, result.CodeChunks)
	})
}

func TestService_RetrieveWithPlan(t *testing.T) {
	g := depgraph.NewGraph()
	g.AddEdge("OrderService.java", "PaymentGateway.java")

	summaries := &fakeTier{docs: []indexer.Document{
		summaryDoc("summary:1", "OrderService.java", "Coordinates order placement."),
	}}
	chunks := &fakeTier{docs: []indexer.Document{
		chunkDoc("chunk:1", "OrderService.java", "void place() {}"),
		chunkDoc("chunk:2", "PaymentGateway.java", "void pay() {}"),
	}}
	svc := newTestService(summaries, chunks, g)

	plan := planner.SearchPlan{
		OriginalQuery:  "order placement flow",
		Intent:         planner.IntentArchitecture,
		SearchStrategy: planner.StrategyDepGraph,
		TopK:           5,
		MaxHops:        2,
		TokenBudget:    6000,
		Confidence:     0.85,
	}
	result := svc.RetrieveWithPlan(context.Background(), plan)

	require.False(t, result.IsEmpty())

	t.Run("expansion pulls in graph neighbors", func(t *testing.T) {
		require.NotEmpty(t, chunks.filters)
		assert.Contains(t, chunks.filters[0], "PaymentGateway.java")
		assert.Contains(t, result.RelevantFiles, "PaymentGateway.java")
	})

	t.Run("plan metadata carried onto the context", func(t *testing.T) {
		assert.Equal(t, string(planner.StrategyDepGraph), result.SearchStrategy)
		assert.InDelta(t, 0.85, result.Confidence, 0.001)
		assert.Equal(t, 6000, result.MaxTokens)
	})

	t.Run("invalid plan yields empty context", func(t *testing.T) {
		bad := plan
		bad.TopK = 0
		result := svc.RetrieveWithPlan(context.Background(), bad)
		assert.True(t, result.IsEmpty())
	})
}

func TestService_OversizedContentExhaustsBudget(t *testing.T) {
	big := summaryDoc("summary:1", "OrderService.java", strings.Repeat("order pipeline detail ", 200))
	summaries := &fakeTier{docs: []indexer.Document{big}}
	svc := newTestService(summaries, &fakeTier{}, nil)

	plan := planner.SearchPlan{
		OriginalQuery:  "orders",
		SearchStrategy: planner.StrategySimilarity,
		TopK:           5,
		TokenBudget:    100,
		Confidence:     0.5,
	}
	result := svc.RetrieveWithPlan(context.Background(), plan)

	require.False(t, result.IsEmpty())
	require.Len(t, result.FileSummaries, 1, "the single most relevant item ships even over budget")
	assert.Equal(t, result.MaxTokens, result.UsedTokens,
		"shipped content larger than the budget reports the budget as spent")
}

func TestService_EntityCenteredSearchesPerEntity(t *testing.T) {
	summaries := &fakeTier{docs: []indexer.Document{
		summaryDoc("summary:1", "AuthService.java", "Authentication entry point."),
	}}
	svc := newTestService(summaries, &fakeTier{}, nil)

	plan := planner.SearchPlan{
		OriginalQuery:  "how do AuthService and TokenManager interact",
		SearchStrategy: planner.StrategyEntity,
		TargetEntities: []string{"AuthService", "TokenManager"},
		TopK:           4,
		TokenBudget:    5000,
		Confidence:     0.5,
	}
	result := svc.RetrieveWithPlan(context.Background(), plan)

	require.False(t, result.IsEmpty())
	assert.Equal(t, []string{"AuthService", "TokenManager"}, summaries.queries,
		"entity plans search once per entity, not with the raw query")
}

func TestService_RetrieveSpecificFile(t *testing.T) {
	summaries := &fakeTier{byFile: map[string][]indexer.Document{
		"config.go": {summaryDoc("summary:9", "config.go", "Loads the YAML config.")},
	}}
	chunks := &fakeTier{byFile: map[string][]indexer.Document{
		"config.go": {chunkDoc("chunk:9", "config.go", "func LoadConfig() {}")},
	}}
	svc := newTestService(summaries, chunks, nil)

	t.Run("known file", func(t *testing.T) {
		result := svc.RetrieveSpecificFile(context.Background(), "config.go")
		require.False(t, result.IsEmpty())
		assert.Equal(t, []string{"config.go"}, result.RelevantFiles)
		assert.Len(t, result.FileSummaries, 1)
		assert.Len(t, result.CodeChunks, 1)
		assert.Equal(t, "specific_file", result.SearchStrategy)
	})

	t.Run("unknown file", func(t *testing.T) {
		result := svc.RetrieveSpecificFile(context.Background(), "nope.go")
		assert.True(t, result.IsEmpty())
	})

	t.Run("no planner involvement", func(t *testing.T) {
		before := len(summaries.queries)
		svc.RetrieveSpecificFile(context.Background(), "config.go")
		assert.Equal(t, before, len(summaries.queries), "specific-file lookup never runs a search")
	})
}
