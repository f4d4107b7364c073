package store

import "time"

// FileRecord is an indexed source file.
type FileRecord struct {
	ID        int64
	Path      string
	Hash      string
	Language  string
	IndexedAt time.Time
}

// SummaryRow is a file-summary document: one per indexed file.
type SummaryRow struct {
	ID       int64
	FilePath string
	Text     string
}

// ChunkRow is a sub-file document: one class or method chunk.
type ChunkRow struct {
	ID        int64
	FilePath  string
	Name      string
	ChunkType string // "class-chunk" or "method-chunk"
	StartLine int
	EndLine   int
	Content   string
}

// SummaryResult is a summary search hit with its vector distance.
type SummaryResult struct {
	Summary  SummaryRow
	Distance float64
}

// ChunkResult is a chunk search hit with its vector distance.
type ChunkResult struct {
	Chunk    ChunkRow
	Distance float64
}

// EdgeRow is a cached similarity edge between two graph nodes.
type EdgeRow struct {
	NodeA      string
	NodeB      string
	Similarity float64
}
