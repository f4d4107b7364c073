package knowledge

import "context"

// Embedder converts text to vectors. Implementations are black boxes to the
// engine; the only contract is one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Summarizer produces file-summary text at index-build time.
type Summarizer interface {
	SummarizeFile(ctx context.Context, path string, content string) (string, error)
}
