package indexer

import (
	"context"
	"fmt"
	"strconv"

	"codescout/internal/apperr"
	"codescout/internal/knowledge"
)

// SummaryIndex is the file-summary tier of the semantic index: one document
// per source file.
type SummaryIndex struct {
	embedder knowledge.Embedder
	docs     DocumentStore
}

func NewSummaryIndex(embedder knowledge.Embedder, docs DocumentStore) *SummaryIndex {
	return &SummaryIndex{embedder: embedder, docs: docs}
}

// Search embeds the query and returns the topK closest file summaries.
// fileFilter narrows results to the given files when non-empty.
func (si *SummaryIndex) Search(ctx context.Context, query string, topK int, fileFilter []string) ([]Document, error) {
	vecs, err := si.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("%w: embed query: %v", apperr.ErrBackendFailure, err)
	}

	fetch := topK
	if len(fileFilter) > 0 {
		fetch = topK * 8
	}
	results, err := si.docs.SearchSummaries(ctx, vecs[0], fetch)
	if err != nil {
		return nil, fmt.Errorf("%w: summary search: %v", apperr.ErrBackendFailure, err)
	}

	filter := toSet(fileFilter)
	var docs []Document
	for _, r := range results {
		if len(filter) > 0 && !filter[r.Summary.FilePath] {
			continue
		}
		if len(docs) >= topK {
			break
		}
		docs = append(docs, Document{
			ID:        "summary:" + strconv.FormatInt(r.Summary.ID, 10),
			Filename:  r.Summary.FilePath,
			ChunkType: ChunkTypeFileSummary,
			Text:      r.Summary.Text,
			Score:     distanceToScore(r.Distance),
		})
	}
	return docs, nil
}

// ForFile returns the stored summary documents for exactly one file,
// bypassing similarity search.
func (si *SummaryIndex) ForFile(ctx context.Context, filename string) ([]Document, error) {
	rows, err := si.docs.SummariesForFile(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: summaries for %s: %v", apperr.ErrBackendFailure, filename, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			ID:        "summary:" + strconv.FormatInt(r.ID, 10),
			Filename:  r.FilePath,
			ChunkType: ChunkTypeFileSummary,
			Text:      r.Text,
			Score:     1,
		})
	}
	return docs, nil
}

// ApproxCount estimates the index size with one broad similarity query.
// Exact counts are not a goal.
func (si *SummaryIndex) ApproxCount(ctx context.Context) int {
	docs, err := si.Search(ctx, "code", 1000, nil)
	if err != nil {
		return 0
	}
	return len(docs)
}

// ChunkIndex is the sub-file tier: class and method chunks.
type ChunkIndex struct {
	embedder knowledge.Embedder
	docs     DocumentStore
}

func NewChunkIndex(embedder knowledge.Embedder, docs DocumentStore) *ChunkIndex {
	return &ChunkIndex{embedder: embedder, docs: docs}
}

// Search embeds the query and returns the topK closest chunks, optionally
// restricted to fileFilter.
func (ci *ChunkIndex) Search(ctx context.Context, query string, topK int, fileFilter []string) ([]Document, error) {
	vecs, err := ci.embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) == 0 {
		return nil, fmt.Errorf("%w: embed query: %v", apperr.ErrBackendFailure, err)
	}
	results, err := ci.docs.SearchChunks(ctx, vecs[0], topK, fileFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: chunk search: %v", apperr.ErrBackendFailure, err)
	}

	var docs []Document
	for _, r := range results {
		docs = append(docs, Document{
			ID:        "chunk:" + strconv.FormatInt(r.Chunk.ID, 10),
			Filename:  r.Chunk.FilePath,
			ChunkType: r.Chunk.ChunkType,
			Text:      r.Chunk.Content,
			Score:     distanceToScore(r.Distance),
		})
	}
	return docs, nil
}

// ForFile returns the stored chunk documents for exactly one file, ordered
// by position.
func (ci *ChunkIndex) ForFile(ctx context.Context, filename string) ([]Document, error) {
	rows, err := ci.docs.ChunksForFile(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: chunks for %s: %v", apperr.ErrBackendFailure, filename, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, Document{
			ID:        "chunk:" + strconv.FormatInt(r.ID, 10),
			Filename:  r.FilePath,
			ChunkType: r.ChunkType,
			Text:      r.Content,
			Score:     1,
		})
	}
	return docs, nil
}

// ApproxCount estimates the chunk-index size with one broad query.
func (ci *ChunkIndex) ApproxCount(ctx context.Context) int {
	docs, err := ci.Search(ctx, "code", 1000, nil)
	if err != nil {
		return 0
	}
	return len(docs)
}

func distanceToScore(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
