// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm provides text generation clients. The pipeline depends only
// on TextGenerator; the composition root picks the implementation for each
// model role from configuration.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/pkg/types"
)

// TextGenerator produces a completion for a single-turn prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the client for cfg. withCitations makes OpenAI-compatible
// clients append the response's citation list to the text, which is how
// search-capable models report their sources.
func New(cfg types.ModelConfig, apiKey string, client *http.Client, withCitations bool, log *zap.Logger) (TextGenerator, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("model %s: base_url is required for provider openai", cfg.Name)
		}
		return &ChatCompletions{
			BaseURL:         cfg.BaseURL,
			Model:           cfg.Name,
			APIKey:          apiKey,
			Client:          client,
			MaxRetries:      cfg.MaxRetries,
			AppendCitations: withCitations,
			Log:             log,
		}, nil
	case types.ProviderAnthropic:
		return &Claude{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Name,
			APIKey:     apiKey,
			Client:     client,
			MaxRetries: cfg.MaxRetries,
			Log:        log,
		}, nil
	default:
		return nil, fmt.Errorf("model %s: unsupported provider %q", cfg.Name, cfg.Provider)
	}
}
