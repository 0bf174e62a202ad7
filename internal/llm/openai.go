// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/httputil"
	"github.com/pdiddy/paper-writer/internal/metrics"
)

// ChatCompletions calls an OpenAI-compatible /chat/completions endpoint.
type ChatCompletions struct {
	BaseURL    string
	Model      string
	APIKey     string
	Client     *http.Client
	MaxRetries int

	// AppendCitations appends "\n\nCitations: a, b" when the response
	// carries a top-level citations array.
	AppendCitations bool

	Log *zap.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *ChatCompletions) Generate(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.RecordCollaborator("chat_completions", time.Since(start).Seconds(), err) }()

	body, err := json.Marshal(chatRequest{
		Model:    c.Model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, httpClient(c.Client), req, c.MaxRetries, c.Log)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat completions returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding chat completions response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("chat completions returned no choices")
	}

	text = cr.Choices[0].Message.Content
	if c.AppendCitations && len(cr.Citations) > 0 {
		text += "\n\nCitations: " + strings.Join(cr.Citations, ", ")
	}
	return text, nil
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
