package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"codescout/internal/hashing"
	"codescout/internal/store"
)

// IncrementalStats accumulates across calls to IndexChangedFiles.
type IncrementalStats struct {
	FilesIndexed int
	TotalChunks  int
	Errors       int
}

// IncrementalIndexer re-indexes only the files whose content hash changed
// since the last pass, bounding incremental cost to O(changed) rather than
// O(corpus).
type IncrementalIndexer struct {
	indexer *Indexer
	tracker *hashing.Tracker
	logger  *slog.Logger

	mu    sync.Mutex
	stats IncrementalStats
}

func NewIncrementalIndexer(ix *Indexer, tracker *hashing.Tracker, logger *slog.Logger) *IncrementalIndexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncrementalIndexer{indexer: ix, tracker: tracker, logger: logger}
}

// IndexChangedFiles classifies allFiles into changed, new, and unchanged,
// and re-chunks and re-inserts only the first two groups. Re-indexing a file
// replaces its prior documents, so re-running on an unchanged set is
// idempotent. Returns the running totals.
func (ii *IncrementalIndexer) IndexChangedFiles(ctx context.Context, allFiles []string) (IncrementalStats, error) {
	changed := ii.tracker.GetChangedFiles(allFiles)
	fresh := ii.tracker.GetNewFiles(allFiles)
	ii.logger.Info("incremental: classified files",
		slog.Int("changed", len(changed)),
		slog.Int("new", len(fresh)),
		slog.Int("total", len(allFiles)))

	for _, path := range append(changed, fresh...) {
		chunks, err := ii.indexer.indexFile(ctx, path)
		ii.mu.Lock()
		if err != nil {
			ii.stats.Errors++
			ii.logger.Warn("incremental: file failed, will retry next pass",
				slog.String("path", path), slog.String("error", err.Error()))
			ii.mu.Unlock()
			continue
		}
		ii.stats.FilesIndexed++
		ii.stats.TotalChunks += chunks
		ii.mu.Unlock()

		// The hash is recorded only after a successful index. A failed file
		// keeps its old classification and is picked up again next pass.
		ii.tracker.TrackFileHash(path)
	}

	return ii.Stats(), nil
}

// Stats returns the running totals accumulated so far.
func (ii *IncrementalIndexer) Stats() IncrementalStats {
	ii.mu.Lock()
	defer ii.mu.Unlock()
	return ii.stats
}

// ChunkContent is a chunk handed to the incremental summarizer.
type ChunkContent struct {
	ID      string
	Content string
}

// ChunkSummary is a summarized chunk, with provenance.
type ChunkSummary struct {
	ID          string
	ContentHash string
	Summary     string
	FromCache   bool
}

// SummarizeStats reports one SummarizeChangedChunks call.
type SummarizeStats struct {
	TotalChunks      int
	SummarizedChunks int
	CachedChunks     int
}

// maxSummaryLen bounds heuristic chunk summaries. Longer content is
// truncated with an explicit marker; shorter content passes through.
const maxSummaryLen = 500

// IncrementalSummarizer reuses cached chunk summaries keyed by content hash
// and only summarizes chunks it has not seen before.
type IncrementalSummarizer struct {
	cache  SummaryCache
	maxLen int
}

func NewIncrementalSummarizer(cache SummaryCache) *IncrementalSummarizer {
	return &IncrementalSummarizer{cache: cache, maxLen: maxSummaryLen}
}

// SummarizeChangedChunks summarizes each chunk, consulting the
// content-addressed cache first.
func (is *IncrementalSummarizer) SummarizeChangedChunks(ctx context.Context, chunks []ChunkContent) ([]ChunkSummary, SummarizeStats, error) {
	stats := SummarizeStats{TotalChunks: len(chunks)}
	out := make([]ChunkSummary, 0, len(chunks))

	for _, chunk := range chunks {
		hash := hashing.Sum([]byte(chunk.Content))

		if cached, ok, err := is.cache.GetChunkSummary(ctx, hash); err != nil {
			return out, stats, fmt.Errorf("summary cache lookup for %s: %w", chunk.ID, err)
		} else if ok {
			stats.CachedChunks++
			out = append(out, ChunkSummary{ID: chunk.ID, ContentHash: hash, Summary: cached, FromCache: true})
			continue
		}

		summary := SummarizeBounded(chunk.Content, is.maxLen)
		if err := is.cache.PutChunkSummary(ctx, hash, summary); err != nil {
			return out, stats, fmt.Errorf("summary cache store for %s: %w", chunk.ID, err)
		}
		stats.SummarizedChunks++
		out = append(out, ChunkSummary{ID: chunk.ID, ContentHash: hash, Summary: summary})
	}
	return out, stats, nil
}

// SummarizeBounded returns content unchanged when it fits in maxLen, or the
// truncated prefix with an explicit "…" marker.
func SummarizeBounded(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "…"
}

// GraphNode is a node handed to the incremental graph calculator.
type GraphNode struct {
	ID      string
	Content string
}

// GraphCalcStats reports one CalculateChangedEdges call.
type GraphCalcStats struct {
	TotalNodes      int
	NodesProcessed  int
	EdgesCalculated int
	CachedNodes     int
}

// edgeSimilarityThreshold is the token-set Jaccard floor for an edge. The
// same metric and threshold apply during full builds and incremental
// recomputes.
const edgeSimilarityThreshold = 0.3

// IncrementalGraphCalculator recomputes similarity edges only for nodes
// whose content hash changed; unchanged nodes retain their cached edges.
type IncrementalGraphCalculator struct {
	cache     EdgeCache
	threshold float64
}

func NewIncrementalGraphCalculator(cache EdgeCache) *IncrementalGraphCalculator {
	return &IncrementalGraphCalculator{cache: cache, threshold: edgeSimilarityThreshold}
}

// CalculateChangedEdges computes similarity edges for the changed subset of
// nodes against the full node set.
func (gc *IncrementalGraphCalculator) CalculateChangedEdges(ctx context.Context, nodes []GraphNode) (GraphCalcStats, error) {
	stats := GraphCalcStats{TotalNodes: len(nodes)}

	tokenSets := make(map[string]map[string]struct{}, len(nodes))
	for _, n := range nodes {
		tokenSets[n.ID] = tokenSet(n.Content)
	}

	for _, node := range nodes {
		hash := hashing.Sum([]byte(node.Content))
		stored, err := gc.cache.GetNodeHash(ctx, node.ID)
		if err != nil {
			return stats, fmt.Errorf("node hash lookup for %s: %w", node.ID, err)
		}
		if stored == hash {
			stats.CachedNodes++
			continue
		}

		var edges []store.EdgeRow
		for _, other := range nodes {
			if other.ID == node.ID {
				continue
			}
			sim := jaccard(tokenSets[node.ID], tokenSets[other.ID])
			if sim >= gc.threshold {
				edges = append(edges, store.EdgeRow{NodeA: node.ID, NodeB: other.ID, Similarity: sim})
			}
		}

		if err := gc.cache.ReplaceNodeEdges(ctx, node.ID, edges); err != nil {
			return stats, fmt.Errorf("edge store for %s: %w", node.ID, err)
		}
		if err := gc.cache.PutNodeHash(ctx, node.ID, hash); err != nil {
			return stats, fmt.Errorf("node hash store for %s: %w", node.ID, err)
		}
		stats.NodesProcessed++
		stats.EdgesCalculated += len(edges)
	}
	return stats, nil
}

// CalculateChangedEdgesForFiles reads each path and recomputes its
// similarity edges, with the file path as the node id. Unreadable files are
// skipped so a deleted file never aborts the pass.
func (gc *IncrementalGraphCalculator) CalculateChangedEdgesForFiles(ctx context.Context, paths []string) (GraphCalcStats, error) {
	nodes := make([]GraphNode, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		nodes = append(nodes, GraphNode{ID: p, Content: string(data)})
	}
	return gc.CalculateChangedEdges(ctx, nodes)
}

var tokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func tokenSet(content string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenRe.FindAllString(content, -1) {
		set[strings.ToLower(t)] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for t := range small {
		if _, ok := large[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
