package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"codescout/internal/apperr"
)

// embedBatchSize bounds one /api/embed request; embedBatchPause spaces
// consecutive batches so a local Ollama instance is not flooded.
const (
	embedBatchSize  = 64
	embedBatchPause = 200 * time.Millisecond
	embedTimeout    = 90 * time.Second
)

// OllamaEmbedder implements Embedder against a local Ollama instance.
type OllamaEmbedder struct {
	client    *http.Client
	model     string
	dimension int
	endpoint  string
	logger    *slog.Logger
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func NewOllamaEmbedder(model string, dim int, baseURL string, logger *slog.Logger) *OllamaEmbedder {
	if logger == nil {
		logger = slog.Default()
	}
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/embed") {
		url += "/api/embed"
	}

	return &OllamaEmbedder{
		client:    &http.Client{Timeout: embedTimeout},
		model:     model,
		dimension: dim,
		endpoint:  url,
		logger:    logger,
	}
}

func (o *OllamaEmbedder) Dimension() int {
	return o.dimension
}

// Embed vectorizes texts in bounded batches, pausing between batches. The
// whole call fails on the first bad batch; partial results are never
// returned.
func (o *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if strings.TrimSpace(o.model) == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedBatchPause):
			}
		}
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := o.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		o.logger.Debug("embedder: batch done",
			slog.Int("texts", end-start), slog.Int("total", len(texts)))
		out = append(out, vecs...)
	}

	if o.dimension <= 0 && len(out) > 0 {
		o.dimension = len(out[0])
	}
	return out, nil
}

func (o *OllamaEmbedder) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Input: batch})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", apperr.ErrBackendFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", apperr.ErrBackendFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: ollama embed (%d): %s",
			apperr.ErrBackendFailure, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaEmbedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: ollama embed: %v", apperr.ErrBackendFailure, err)
	}
	if len(parsed.Embeddings) != len(batch) {
		return nil, fmt.Errorf("%w: ollama embed: got %d vectors for %d texts",
			apperr.ErrBackendFailure, len(parsed.Embeddings), len(batch))
	}
	return parsed.Embeddings, nil
}
