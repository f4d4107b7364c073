package retriever

// FileSummary is one file-level summary included in assembled context.
type FileSummary struct {
	Filename string
	Text     string
	Score    float64
}

// CodeChunk is one sub-file chunk included in assembled context.
type CodeChunk struct {
	Filename  string
	ChunkType string
	Text      string
	Score     float64
}

// CodeContext is the assembled answer to one retrieval request: summaries,
// chunks, and the prioritized file list, all fitted to the plan's token
// budget. A failed or empty retrieval yields an empty context rather than
// an error.
type CodeContext struct {
	Query          string
	SearchStrategy string
	Confidence     float64
	FileSummaries  []FileSummary
	CodeChunks     []CodeChunk
	RelevantFiles  []string
	UsedTokens     int
	MaxTokens      int
}

// IsEmpty reports whether retrieval matched nothing. A context is empty
// exactly when no relevant files were found.
func (c CodeContext) IsEmpty() bool {
	return len(c.RelevantFiles) == 0
}
