package indexer

import (
	"context"

	"codescout/internal/store"
)

// Chunk types carried on retrieved documents.
const (
	ChunkTypeFileSummary = "file-summary"
	ChunkTypeClass       = "class-chunk"
	ChunkTypeMethod      = "method-chunk"
)

// Document is a search hit from either index tier, owned by the caller.
type Document struct {
	ID        string
	Filename  string
	ChunkType string
	Text      string
	Score     float64
}

// DocumentStore is the persistence surface the indexer needs. Implemented by
// *store.SQLiteStore; tests substitute fakes.
type DocumentStore interface {
	GetFileHash(ctx context.Context, path string) (string, error)
	ReplaceFile(ctx context.Context, file store.FileRecord, summaryText string, summaryVec []float32, chunks []store.ChunkRow, chunkVecs [][]float32) error
	DeleteFile(ctx context.Context, path string) error
	SearchSummaries(ctx context.Context, queryVec []float32, topK int) ([]store.SummaryResult, error)
	SearchChunks(ctx context.Context, queryVec []float32, topK int, fileFilter []string) ([]store.ChunkResult, error)
	SummariesForFile(ctx context.Context, path string) ([]store.SummaryRow, error)
	ChunksForFile(ctx context.Context, path string) ([]store.ChunkRow, error)
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// SummaryCache caches chunk summaries by content hash.
type SummaryCache interface {
	GetChunkSummary(ctx context.Context, contentHash string) (string, bool, error)
	PutChunkSummary(ctx context.Context, contentHash, summary string) error
}

// EdgeCache persists per-node content hashes and similarity edges across
// indexing passes.
type EdgeCache interface {
	GetNodeHash(ctx context.Context, nodeID string) (string, error)
	PutNodeHash(ctx context.Context, nodeID, hash string) error
	ReplaceNodeEdges(ctx context.Context, nodeID string, edges []store.EdgeRow) error
	EdgesForNode(ctx context.Context, nodeID string) ([]store.EdgeRow, error)
}
