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

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const claudeMaxTokens = 4096

// Claude calls the Anthropic Messages API.
type Claude struct {
	// BaseURL overrides the API root (e.g. "https://api.anthropic.com/v1").
	BaseURL    string
	Model      string
	APIKey     string
	Client     *http.Client
	MaxRetries int
	Log        *zap.Logger
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate sends prompt as a single user message and returns the
// concatenated text blocks of the reply.
func (c *Claude) Generate(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() { metrics.RecordCollaborator("claude", time.Since(start).Seconds(), err) }()

	body, err := json.Marshal(claudeRequest{
		Model:     c.Model,
		MaxTokens: claudeMaxTokens,
		Messages:  []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := claudeAPIURL
	if c.BaseURL != "" {
		endpoint = strings.TrimRight(c.BaseURL, "/") + "/messages"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httputil.DoWithRetry(ctx, httpClient(c.Client), req, c.MaxRetries, c.Log)
	if err != nil {
		return "", fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("Claude API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var cr claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding Claude response: %w", err)
	}

	var parts []string
	for _, block := range cr.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content in Claude API response")
	}
	return strings.Join(parts, ""), nil
}
