package retriever

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"codescout/internal/budget"
	"codescout/internal/depgraph"
	"codescout/internal/indexer"
	"codescout/internal/planner"
)

// SummarySearcher is the file-summary tier as the retriever sees it.
type SummarySearcher interface {
	Search(ctx context.Context, query string, topK int, fileFilter []string) ([]indexer.Document, error)
	ForFile(ctx context.Context, filename string) ([]indexer.Document, error)
}

// ChunkSearcher is the chunk tier as the retriever sees it.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, topK int, fileFilter []string) ([]indexer.Document, error)
	ForFile(ctx context.Context, filename string) ([]indexer.Document, error)
}

// GraphProvider hands out the current dependency-graph snapshot. The
// snapshot is immutable, so retrieval never races a background rebuild.
type GraphProvider interface {
	Current() *depgraph.Graph
}

// Service orchestrates one retrieval: plan, seed search, graph expansion,
// chunk fetch, budget-fitted assembly. Backend failures degrade to an empty
// context; the caller never sees an error from retrieval itself.
type Service struct {
	planner   *planner.Planner
	budgets   *budget.Manager
	graphs    GraphProvider
	summaries SummarySearcher
	chunks    ChunkSearcher
	timeout   time.Duration
	logger    *slog.Logger
}

func NewService(pl *planner.Planner, budgets *budget.Manager, graphs GraphProvider,
	summaries SummarySearcher, chunks ChunkSearcher, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		planner:   pl,
		budgets:   budgets,
		graphs:    graphs,
		summaries: summaries,
		chunks:    chunks,
		timeout:   timeout,
		logger:    logger,
	}
}

// RetrieveCodeContext plans the query and executes the plan.
func (s *Service) RetrieveCodeContext(ctx context.Context, query string) CodeContext {
	plan := s.planner.CreateSearchPlan(query)
	return s.RetrieveWithPlan(ctx, plan)
}

// RetrieveWithPlan executes an explicit search plan. Every search parameter
// comes from the plan; nothing reads ambient state.
func (s *Service) RetrieveWithPlan(ctx context.Context, plan planner.SearchPlan) CodeContext {
	requestID := uuid.NewString()[:8]
	logger := s.logger.With(slog.String("request", requestID))

	empty := CodeContext{
		Query:          plan.OriginalQuery,
		SearchStrategy: string(plan.SearchStrategy),
		Confidence:     plan.Confidence,
	}

	if err := plan.Validate(); err != nil {
		logger.Warn("retriever: invalid plan, returning empty context",
			slog.String("error", err.Error()))
		return empty
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	b := s.budgets.CreateBudgetWithMax(plan.OriginalQuery, plan.TokenBudget)

	logger.Info("retriever: executing plan",
		slog.String("strategy", string(plan.SearchStrategy)),
		slog.Int("topK", plan.TopK),
		slog.Int("maxHops", plan.MaxHops),
		slog.Int("budget", plan.TokenBudget))

	summaryDocs, err := s.seedSearch(ctx, plan)
	if err != nil {
		logger.Warn("retriever: summary search failed, returning empty context",
			slog.String("error", err.Error()))
		return empty
	}
	if len(summaryDocs) == 0 {
		logger.Info("retriever: no summaries matched")
		return empty
	}

	seedFiles := make([]string, 0, len(summaryDocs))
	for _, d := range summaryDocs {
		seedFiles = append(seedFiles, d.Filename)
	}

	expanded := seedFiles
	if plan.MaxHops > 0 {
		g := s.graphs.Current()
		seeds := append([]string(nil), seedFiles...)
		for _, f := range plan.StartingFiles {
			// Guessed filenames only count when the graph knows them.
			if g.Has(f) {
				seeds = append(seeds, f)
			}
		}
		expanded = g.Expand(seeds, plan.MaxHops, plan.IncludeReverseDeps)
		logger.Info("retriever: graph expansion",
			slog.Int("seeds", len(seeds)), slog.Int("expanded", len(expanded)))
	}

	chunkDocs := s.chunkSearch(ctx, plan, expanded, logger)

	items := make([]budget.ContentItem, 0, len(summaryDocs)+len(chunkDocs))
	for _, d := range summaryDocs {
		items = append(items, budget.ContentItem{Filename: d.Filename, Text: d.Text})
	}
	for _, d := range chunkDocs {
		items = append(items, budget.ContentItem{Filename: d.Filename, Text: d.Text})
	}
	kept := s.budgets.PruneContent(items, b, plan.OriginalQuery)
	keptTexts := make(map[string]bool, len(kept))
	for _, it := range kept {
		keptTexts[it.Filename+"\x00"+it.Text] = true
		// Everything kept ships, so everything kept is charged. An item
		// larger than the remaining budget exhausts it.
		b.AddClamped(it.Text)
	}

	out := CodeContext{
		Query:          plan.OriginalQuery,
		SearchStrategy: string(plan.SearchStrategy),
		Confidence:     plan.Confidence,
		UsedTokens:     b.UsedTokens,
		MaxTokens:      b.MaxTokens,
	}
	fileSet := make(map[string]bool)
	for _, d := range summaryDocs {
		if !keptTexts[d.Filename+"\x00"+d.Text] {
			continue
		}
		out.FileSummaries = append(out.FileSummaries, FileSummary{Filename: d.Filename, Text: d.Text, Score: d.Score})
		fileSet[d.Filename] = true
	}
	for _, d := range chunkDocs {
		if !keptTexts[d.Filename+"\x00"+d.Text] {
			continue
		}
		out.CodeChunks = append(out.CodeChunks, CodeChunk{Filename: d.Filename, ChunkType: d.ChunkType, Text: d.Text, Score: d.Score})
		fileSet[d.Filename] = true
	}

	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)
	out.RelevantFiles = s.budgets.PrioritizeFiles(files, plan.OriginalQuery)
	// Files that contributed kept content stay listed even when they score
	// zero against the query terms.
	listed := make(map[string]bool, len(out.RelevantFiles))
	for _, f := range out.RelevantFiles {
		listed[f] = true
	}
	for _, f := range files {
		if !listed[f] {
			out.RelevantFiles = append(out.RelevantFiles, f)
		}
	}

	logger.Info("retriever: context assembled",
		slog.Int("summaries", len(out.FileSummaries)),
		slog.Int("chunks", len(out.CodeChunks)),
		slog.Int("files", len(out.RelevantFiles)),
		slog.Int("usedTokens", out.UsedTokens))
	return out
}

// RetrieveSpecificFile bypasses planning and search entirely: it pulls the
// stored summaries and chunks for exactly one file.
func (s *Service) RetrieveSpecificFile(ctx context.Context, filename string) CodeContext {
	empty := CodeContext{Query: filename, SearchStrategy: "specific_file", Confidence: 1}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summaryDocs, err := s.summaries.ForFile(ctx, filename)
	if err != nil {
		s.logger.Warn("retriever: file summaries failed",
			slog.String("file", filename), slog.String("error", err.Error()))
		return empty
	}
	chunkDocs, err := s.chunks.ForFile(ctx, filename)
	if err != nil {
		s.logger.Warn("retriever: file chunks failed",
			slog.String("file", filename), slog.String("error", err.Error()))
		return empty
	}
	if len(summaryDocs) == 0 && len(chunkDocs) == 0 {
		return empty
	}

	out := empty
	for _, d := range summaryDocs {
		out.FileSummaries = append(out.FileSummaries, FileSummary{Filename: d.Filename, Text: d.Text, Score: d.Score})
	}
	for _, d := range chunkDocs {
		out.CodeChunks = append(out.CodeChunks, CodeChunk{Filename: d.Filename, ChunkType: d.ChunkType, Text: d.Text, Score: d.Score})
	}
	out.RelevantFiles = []string{filename}
	return out
}

// seedSearch runs the strategy's first-pass summary search. Entity-centered
// plans search once per entity and union the results; everything else
// searches with the original query.
func (s *Service) seedSearch(ctx context.Context, plan planner.SearchPlan) ([]indexer.Document, error) {
	if plan.SearchStrategy == planner.StrategyEntity && len(plan.TargetEntities) > 0 {
		seen := make(map[string]bool)
		var union []indexer.Document
		for _, entity := range plan.TargetEntities {
			docs, err := s.summaries.Search(ctx, entity, plan.TopK, nil)
			if err != nil {
				return nil, err
			}
			for _, d := range docs {
				if seen[d.ID] {
					continue
				}
				seen[d.ID] = true
				union = append(union, d)
			}
		}
		return union, nil
	}
	return s.summaries.Search(ctx, plan.OriginalQuery, plan.TopK, nil)
}

// chunkSearch fetches chunks biased toward the expanded file set, then tops
// up from the unrestricted index when the biased search comes back short.
// Chunk-tier failures degrade to summaries-only context.
func (s *Service) chunkSearch(ctx context.Context, plan planner.SearchPlan, expanded []string, logger *slog.Logger) []indexer.Document {
	docs, err := s.chunks.Search(ctx, plan.OriginalQuery, plan.TopK, expanded)
	if err != nil {
		logger.Warn("retriever: chunk search failed, continuing with summaries only",
			slog.String("error", err.Error()))
		return nil
	}
	if len(docs) >= plan.TopK {
		return docs
	}

	extra, err := s.chunks.Search(ctx, plan.OriginalQuery, plan.TopK, nil)
	if err != nil {
		return docs
	}
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		seen[d.ID] = true
	}
	for _, d := range extra {
		if len(docs) >= plan.TopK {
			break
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		docs = append(docs, d)
	}
	return docs
}
