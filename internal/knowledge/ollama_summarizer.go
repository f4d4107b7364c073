package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxSummarizeBytes caps how much of a file is sent to the model. Anything
// beyond it carries little extra signal for a one-paragraph summary.
const maxSummarizeBytes = 12000

// OllamaSummarizer implements Summarizer against a local Ollama chat
// endpoint.
type OllamaSummarizer struct {
	client   *http.Client
	model    string
	endpoint string
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
}

func NewOllamaSummarizer(model string, baseURL string) *OllamaSummarizer {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = "http://127.0.0.1:11434"
	}
	url = strings.TrimRight(url, "/")
	if !strings.HasSuffix(url, "/api/chat") {
		url += "/api/chat"
	}

	return &OllamaSummarizer{
		client:   &http.Client{Timeout: 120 * time.Second},
		model:    model,
		endpoint: url,
	}
}

func (s *OllamaSummarizer) SummarizeFile(ctx context.Context, path string, content string) (string, error) {
	if strings.TrimSpace(s.model) == "" {
		return "", fmt.Errorf("ollama summary model is required")
	}
	if len(content) > maxSummarizeBytes {
		content = content[:maxSummarizeBytes]
	}

	var sb strings.Builder
	sb.WriteString("Summarize the following source file for a code search index. ")
	sb.WriteString("Describe what the file contains and what it is responsible for, in one short paragraph. ")
	sb.WriteString("Name the main classes and methods.\n\n")
	fmt.Fprintf(&sb, "File: %s\n\n%s", path, content)

	body, err := json.Marshal(ollamaChatRequest{
		Model:    s.model,
		Messages: []ollamaChatMessage{{Role: "user", Content: sb.String()}},
		Stream:   false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama chat request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", err
	}
	return strings.TrimSpace(parsed.Message.Content), nil
}
