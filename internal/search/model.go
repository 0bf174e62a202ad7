// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"fmt"

	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// ModelSearcher asks a search-capable model for sources. The generator is
// expected to include URLs in its answer; OpenAI-compatible clients built
// with citations enabled append the response's citation list.
type ModelSearcher struct {
	Generator llm.TextGenerator
	Prompts   *prompts.Store
}

// Name returns the backend identifier.
func (s *ModelSearcher) Name() string { return "model" }

// Search renders the searcher prompt for section and returns the model's text.
func (s *ModelSearcher) Search(ctx context.Context, p *types.Paper, section types.OutlineSection) (string, error) {
	data := prompts.PaperData(p)
	data.Section = section.String()
	prompt, err := s.Prompts.Render(prompts.Searcher, data)
	if err != nil {
		return "", err
	}
	text, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("search model: %w", err)
	}
	return text, nil
}
