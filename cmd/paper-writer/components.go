// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-writer/internal/acquire"
	"github.com/pdiddy/paper-writer/internal/container"
	"github.com/pdiddy/paper-writer/internal/fetch"
	"github.com/pdiddy/paper-writer/internal/llm"
	"github.com/pdiddy/paper-writer/internal/prompts"
	"github.com/pdiddy/paper-writer/internal/search"
	"github.com/pdiddy/paper-writer/pkg/types"
)

// newGenerator builds the text generator for one model role.
func newGenerator(role string, mc types.ModelConfig, withCitations bool) (llm.TextGenerator, error) {
	key, err := loadedSecrets.Resolve(mc.APIKeyName)
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", role, err)
	}
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	gen, err := llm.New(mc, key, client, withCitations, logger.Named(role))
	if err != nil {
		return nil, fmt.Errorf("%s model: %w", role, err)
	}
	return gen, nil
}

// newFetcher builds the reference fetcher, selecting the PDF backend. The
// per-host limiter comes from fetch.per_host_rps.
func newFetcher() (*fetch.Fetcher, error) {
	opts := []fetch.Option{fetch.WithLogger(logger.Named("fetch"))}
	if cfg.Fetch.DocumentBackend == types.DocumentBackendContainer {
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, fmt.Errorf("document backend: %w", err)
		}
		if err := rt.ImageExists(cfg.Fetch.ContainerImage); err != nil {
			return nil, fmt.Errorf("document backend: %w", err)
		}
		logger.Info("using container document backend",
			zap.String("runtime", rt.Name()), zap.String("image", cfg.Fetch.ContainerImage))
		opts = append(opts, fetch.WithDocumentExtractor(fetch.ContainerExtractor{
			Runtime: rt,
			Image:   cfg.Fetch.ContainerImage,
		}))
	}
	return fetch.New(cfg.Fetch, opts...), nil
}

// newEngine builds the acquisition engine over a fresh fetcher.
func newEngine(progress io.Writer) (*acquire.Engine, error) {
	f, err := newFetcher()
	if err != nil {
		return nil, err
	}
	return acquire.New(f, cfg.Fetch,
		acquire.WithLogger(logger.Named("acquire")),
		acquire.WithProgress(progress),
	), nil
}

// newPrompts loads the built-in templates and any configured overrides.
func newPrompts() (*prompts.Store, error) {
	return prompts.Load(cfg.Prompts.Dir)
}

// newSearcher builds the configured search backends. A single backend is
// returned as is; several are combined with search.Multi.
func newSearcher(store *prompts.Store) (search.Searcher, error) {
	backends := cfg.Search.Backends
	if len(backends) == 0 {
		backends = []string{types.SearchBackendModel}
	}

	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	var searchers []search.Searcher
	for _, name := range backends {
		switch name {
		case types.SearchBackendModel:
			gen, err := newGenerator("search", cfg.Models.Search, true)
			if err != nil {
				return nil, err
			}
			searchers = append(searchers, &search.ModelSearcher{Generator: gen, Prompts: store})
		case types.SearchBackendOpenAlex:
			searchers = append(searchers, &search.OpenAlexSearcher{
				Client:     client,
				Email:      optionalSecret(cfg.Search.EmailKeyName),
				UserAgent:  cfg.HTTP.UserAgent,
				MaxResults: cfg.Search.MaxResults,
				Log:        logger.Named("openalex"),
			})
		case types.SearchBackendArxiv:
			searchers = append(searchers, &search.ArxivSearcher{
				Client:     client,
				UserAgent:  cfg.HTTP.UserAgent,
				MaxResults: cfg.Search.MaxResults,
				Log:        logger.Named("arxiv"),
			})
		case types.SearchBackendSemanticScholar:
			searchers = append(searchers, &search.SemanticScholarSearcher{
				Client:     client,
				APIKey:     optionalSecret(cfg.Search.SemanticScholarKeyName),
				UserAgent:  cfg.HTTP.UserAgent,
				MaxResults: cfg.Search.MaxResults,
				Log:        logger.Named("semantic_scholar"),
			})
		default:
			return nil, fmt.Errorf("unknown search backend %q", name)
		}
	}
	if len(searchers) == 1 {
		return searchers[0], nil
	}
	return &search.Multi{Searchers: searchers, Log: logger.Named("search")}, nil
}

// optionalSecret resolves name, returning "" when it is not set.
func optionalSecret(name string) string {
	v, err := loadedSecrets.Resolve(name)
	if err != nil {
		logger.Debug("optional secret not set", zap.String("name", name))
		return ""
	}
	return v
}
