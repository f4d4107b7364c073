package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"codescout/internal/apperr"
	"codescout/internal/chunker"
	"codescout/internal/embedcache"
	"codescout/internal/hashing"
	"codescout/internal/knowledge"
	"codescout/internal/store"
)

// Stats reports the outcome of an indexing pass.
type Stats struct {
	FilesTotal   int
	FilesIndexed int
	FilesSkipped int
	TotalChunks  int
	Errors       int
}

// Indexer builds the two-tier semantic index: one summary document per file
// and one-or-more chunk documents per file.
type Indexer struct {
	chunker    *chunker.Chunker
	embedder   knowledge.Embedder
	summarizer knowledge.Summarizer // optional; heuristic fallback when nil or failing
	summaries  SummaryCache         // optional; skips re-summarizing unchanged content
	tracker    *hashing.Tracker
	cache      *embedcache.Manager
	docs       DocumentStore
	workers    int
	logger     *slog.Logger
}

func New(c *chunker.Chunker, embedder knowledge.Embedder, summarizer knowledge.Summarizer,
	summaries SummaryCache, tracker *hashing.Tracker, cache *embedcache.Manager,
	docs DocumentStore, workers int, logger *slog.Logger) *Indexer {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		chunker:    c,
		embedder:   embedder,
		summarizer: summarizer,
		summaries:  summaries,
		tracker:    tracker,
		cache:      cache,
		docs:       docs,
		workers:    workers,
		logger:     logger,
	}
}

// cacheManifest is the persisted embedding-cache blob: enough to describe
// what the marker hash covers.
type cacheManifest struct {
	Files     int    `json:"files"`
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
	Corpus    string `json:"corpus_hash"`
}

// BuildAll indexes the given files. When the corpus-level embedding cache is
// still valid, re-embedding is skipped entirely. Failures are file-scoped:
// a bad file is counted and skipped, never aborting the pass.
func (ix *Indexer) BuildAll(ctx context.Context, files []string) (*Stats, error) {
	stats := &Stats{FilesTotal: len(files)}

	fileHashes := make([]string, 0, len(files))
	for _, f := range files {
		if h := ix.tracker.CalculateFileHash(f); h != "" {
			fileHashes = append(fileHashes, h)
		}
	}
	corpusHash := embedcache.ComputeCorpusHash(fileHashes)

	if ix.cache.IsCacheValid(corpusHash) {
		ix.logger.Info("indexer: embedding cache valid, skipping re-embedding",
			slog.Int("files", len(files)))
		for _, f := range files {
			ix.tracker.TrackFileHash(f)
		}
		stats.FilesSkipped = len(files)
		return stats, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for _, path := range files {
		g.Go(func() error {
			chunks, err := ix.indexFile(gctx, path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				stats.Errors++
				ix.logger.Warn("indexer: file failed, skipping",
					slog.String("path", path), slog.String("error", err.Error()))
				return nil // file-scoped: never abort the pass
			}
			// Only a successfully indexed file gets its hash recorded, so a
			// failed file still classifies as changed on the next pass.
			ix.tracker.TrackFileHash(path)
			stats.FilesIndexed++
			stats.TotalChunks += chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}

	if stats.Errors > 0 {
		ix.logger.Warn("indexer: errors during pass, not saving embedding cache",
			slog.Int("errors", stats.Errors))
		return stats, nil
	}

	manifest, _ := json.Marshal(cacheManifest{
		Files:     stats.FilesIndexed,
		Chunks:    stats.TotalChunks,
		Dimension: ix.embedder.Dimension(),
		Corpus:    corpusHash,
	})
	if err := ix.cache.SaveToCache(manifest, corpusHash); err != nil {
		ix.logger.Warn("indexer: cache save failed", slog.String("error", err.Error()))
	}
	return stats, nil
}

// indexFile reads, chunks, summarizes, embeds, and stores one file,
// replacing whatever was indexed for it before. Returns the chunk count.
func (ix *Indexer) indexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", apperr.ErrNotFound, path, err)
	}

	rawChunks, err := ix.chunker.Chunk(path, data)
	if err != nil {
		return 0, err
	}

	summary := ix.summarizeFile(ctx, path, string(data), rawChunks)

	texts := make([]string, 0, len(rawChunks)+1)
	texts = append(texts, summary)
	for _, c := range rawChunks {
		texts = append(texts, c.Content)
	}
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: embed %s: %v", apperr.ErrBackendFailure, path, err)
	}
	if len(vecs) != len(texts) {
		return 0, fmt.Errorf("%w: embed %s: got %d vectors for %d texts",
			apperr.ErrBackendFailure, path, len(vecs), len(texts))
	}

	rows := make([]store.ChunkRow, 0, len(rawChunks))
	for _, c := range rawChunks {
		chunkType := ChunkTypeMethod
		if c.Kind == "class" {
			chunkType = ChunkTypeClass
		}
		rows = append(rows, store.ChunkRow{
			FilePath:  path,
			Name:      c.Name,
			ChunkType: chunkType,
			StartLine: c.StartLine,
			EndLine:   c.EndLine,
			Content:   c.Content,
		})
	}

	file := store.FileRecord{
		Path:     path,
		Hash:     hashing.Sum(data),
		Language: strings.TrimPrefix(filepath.Ext(path), "."),
	}
	if err := ix.docs.ReplaceFile(ctx, file, summary, vecs[0], rows, vecs[1:]); err != nil {
		return 0, fmt.Errorf("%w: store %s: %v", apperr.ErrBackendFailure, path, err)
	}
	return len(rows), nil
}

// summarizeFile returns a file summary, consulting the content-addressed
// summary cache first, then the summarization backend, then a bounded
// heuristic when the backend is absent or fails.
func (ix *Indexer) summarizeFile(ctx context.Context, path, content string, chunks []chunker.Chunk) string {
	contentHash := hashing.Sum([]byte(content))
	if ix.summaries != nil {
		if cached, ok, err := ix.summaries.GetChunkSummary(ctx, contentHash); err == nil && ok {
			return cached
		} else if err != nil {
			ix.logger.Warn("indexer: summary cache lookup failed",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	if ix.summarizer != nil {
		if summary, err := ix.summarizer.SummarizeFile(ctx, path, content); err == nil && summary != "" {
			ix.cacheSummary(ctx, path, contentHash, summary)
			return summary
		} else if err != nil {
			ix.logger.Warn("indexer: summarizer failed, using heuristic",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "File %s", filepath.Base(path))
	if len(chunks) > 0 {
		names := make([]string, 0, len(chunks))
		for _, c := range chunks {
			if c.Name != "" {
				names = append(names, c.Name)
			}
		}
		if len(names) > 0 {
			fmt.Fprintf(&sb, " defining %s", strings.Join(names, ", "))
		}
	}
	sb.WriteString(". ")
	sb.WriteString(SummarizeBounded(content, 400))
	return sb.String()
}

// cacheSummary stores a backend summary under the file's content hash.
// Heuristic summaries are not cached; they are cheap to recompute and would
// otherwise pin a degraded summary after a transient backend failure.
func (ix *Indexer) cacheSummary(ctx context.Context, path, contentHash, summary string) {
	if ix.summaries == nil {
		return
	}
	if err := ix.summaries.PutChunkSummary(ctx, contentHash, summary); err != nil {
		ix.logger.Warn("indexer: summary cache store failed",
			slog.String("path", path), slog.String("error", err.Error()))
	}
}
