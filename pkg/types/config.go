package types

import "time"

// Defaults shared by the CLI and by components constructed with zero values.
const (
	DefaultFetchTimeout     = 10 * time.Second
	DefaultFetchWorkers     = 4
	DefaultPerHostRPS       = 2.0
	DefaultMaxContentLength = 50000
	DefaultUserAgent        = "paper-writer/0.1"
)

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// DocumentBackend selects how PDF responses are turned into text.
type DocumentBackend string

const (
	DocumentBackendNative    DocumentBackend = "native"
	DocumentBackendContainer DocumentBackend = "container"
)

// FetchConfig holds settings for reference acquisition.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Workers bounds the number of concurrent fetches (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// PerHostRPS limits requests per second to any single host (default 2).
	// Zero or negative disables the limit.
	PerHostRPS float64 `json:"per_host_rps" yaml:"per_host_rps" mapstructure:"per_host_rps"`

	// MaxContentLength caps fetched and normalized text, in characters (default 50000).
	MaxContentLength int `json:"max_content_length" yaml:"max_content_length" mapstructure:"max_content_length"`

	// DocumentBackend selects the PDF extractor: native or container.
	DocumentBackend DocumentBackend `json:"document_backend" yaml:"document_backend" mapstructure:"document_backend"`

	// ContainerImage is the image run by the container backend. It must read
	// a PDF on stdin and write plain text on stdout.
	ContainerImage string `json:"container_image,omitempty" yaml:"container_image,omitempty" mapstructure:"container_image"`
}

// WithDefaults fills zero fields with package defaults.
func (c FetchConfig) WithDefaults() FetchConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultFetchTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Workers <= 0 {
		c.Workers = DefaultFetchWorkers
	}
	if c.MaxContentLength <= 0 {
		c.MaxContentLength = DefaultMaxContentLength
	}
	if c.DocumentBackend == "" {
		c.DocumentBackend = DocumentBackendNative
	}
	return c
}

// Provider identifies the wire protocol of a model endpoint.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ModelConfig describes one model endpoint.
type ModelConfig struct {
	// Name is the model identifier sent to the endpoint.
	Name string `json:"name" yaml:"name" mapstructure:"name"`

	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Provider selects the client implementation (default openai).
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// APIKeyName names the environment variable or .secrets/ file holding
	// the API key.
	APIKeyName string `json:"api_key_name" yaml:"api_key_name" mapstructure:"api_key_name"`

	// MaxRetries is the number of retry attempts on rate limiting (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// ModelsConfig holds the per-role model endpoints. Search runs the
// per-section reference search; Simple drafts the description, outline and
// citations; Complex is reserved for long-form drafting.
type ModelsConfig struct {
	Search  ModelConfig `json:"search" yaml:"search" mapstructure:"search"`
	Simple  ModelConfig `json:"simple" yaml:"simple" mapstructure:"simple"`
	Complex ModelConfig `json:"complex" yaml:"complex" mapstructure:"complex"`
}

// StoreConfig holds settings for run persistence.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// PromptsConfig holds settings for prompt templates.
type PromptsConfig struct {
	// Dir holds *.md templates overriding the built-in ones.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty" mapstructure:"dir"`
}

// Search backend names accepted in SearchConfig.Backends.
const (
	SearchBackendModel           = "model"
	SearchBackendOpenAlex        = "openalex"
	SearchBackendArxiv           = "arxiv"
	SearchBackendSemanticScholar = "semantic_scholar"
)

// SearchConfig selects and tunes the per-section search backends.
type SearchConfig struct {
	// Backends lists the searchers queried for each section, in output
	// order (default: model).
	Backends []string `json:"backends" yaml:"backends" mapstructure:"backends"`

	// MaxResults caps works returned by the scholarly backends (default 10).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`

	// EmailKeyName names the secret holding the OpenAlex polite-pool email.
	EmailKeyName string `json:"email_key_name" yaml:"email_key_name" mapstructure:"email_key_name"`

	// SemanticScholarKeyName names the secret holding the Semantic Scholar API key.
	SemanticScholarKeyName string `json:"semantic_scholar_key_name" yaml:"semantic_scholar_key_name" mapstructure:"semantic_scholar_key_name"`
}

// Config is the root configuration, built once at process start and
// passed to each component.
type Config struct {
	HTTP    HTTPConfig    `json:"http" yaml:"http" mapstructure:"http"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Models  ModelsConfig  `json:"models" yaml:"models" mapstructure:"models"`
	Search  SearchConfig  `json:"search" yaml:"search" mapstructure:"search"`
	Store   StoreConfig   `json:"store" yaml:"store" mapstructure:"store"`
	Prompts PromptsConfig `json:"prompts" yaml:"prompts" mapstructure:"prompts"`
}
