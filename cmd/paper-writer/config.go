// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-writer/pkg/types"
)

const (
	defaultCollaboratorTimeout = 120 * time.Second
	defaultDBPath              = "paper-writer.db"
)

// knownBackends are the accepted search.backends entries.
var knownBackends = []string{
	types.SearchBackendModel,
	types.SearchBackendOpenAlex,
	types.SearchBackendArxiv,
	types.SearchBackendSemanticScholar,
}

// setDefaults registers every config key so environment overrides reach
// Unmarshal even when no config file sets the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", defaultCollaboratorTimeout)
	v.SetDefault("http.user_agent", types.DefaultUserAgent)

	v.SetDefault("fetch.timeout", types.DefaultFetchTimeout)
	v.SetDefault("fetch.user_agent", types.DefaultUserAgent)
	v.SetDefault("fetch.workers", types.DefaultFetchWorkers)
	v.SetDefault("fetch.per_host_rps", types.DefaultPerHostRPS)
	v.SetDefault("fetch.max_content_length", types.DefaultMaxContentLength)
	v.SetDefault("fetch.document_backend", string(types.DocumentBackendNative))
	v.SetDefault("fetch.container_image", "")

	v.SetDefault("models.search.name", "sonar")
	v.SetDefault("models.search.base_url", "https://api.perplexity.ai")
	v.SetDefault("models.search.provider", string(types.ProviderOpenAI))
	v.SetDefault("models.search.api_key_name", "perplexity-api-key")
	v.SetDefault("models.search.max_retries", 3)

	v.SetDefault("models.simple.name", "gpt-4o-mini")
	v.SetDefault("models.simple.base_url", "https://api.openai.com/v1")
	v.SetDefault("models.simple.provider", string(types.ProviderOpenAI))
	v.SetDefault("models.simple.api_key_name", "openai-api-key")
	v.SetDefault("models.simple.max_retries", 3)

	v.SetDefault("models.complex.name", "gpt-4o")
	v.SetDefault("models.complex.base_url", "https://api.openai.com/v1")
	v.SetDefault("models.complex.provider", string(types.ProviderOpenAI))
	v.SetDefault("models.complex.api_key_name", "openai-api-key")
	v.SetDefault("models.complex.max_retries", 3)

	v.SetDefault("search.backends", []string{types.SearchBackendModel})
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.email_key_name", "openalex-email")
	v.SetDefault("search.semantic_scholar_key_name", "semantic-scholar-api-key")

	v.SetDefault("store.path", defaultDBPath)
	v.SetDefault("prompts.dir", "")
}

// loadConfig unmarshals v into a Config and validates the enumerated fields.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var c types.Config
	if err := v.Unmarshal(&c); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	c.Fetch = c.Fetch.WithDefaults()
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = defaultCollaboratorTimeout
	}
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = types.DefaultUserAgent
	}

	switch c.Fetch.DocumentBackend {
	case types.DocumentBackendNative:
	case types.DocumentBackendContainer:
		if c.Fetch.ContainerImage == "" {
			return types.Config{}, fmt.Errorf("fetch.container_image is required for the container document backend")
		}
	default:
		return types.Config{}, fmt.Errorf("unknown fetch.document_backend %q (valid: native, container)", c.Fetch.DocumentBackend)
	}

	for _, b := range c.Search.Backends {
		if !slices.Contains(knownBackends, b) {
			return types.Config{}, fmt.Errorf("unknown search backend %q (valid: %v)", b, knownBackends)
		}
	}
	return c, nil
}
