// Package config loads benchmark settings from defaults, an optional YAML
// file and the environment (including a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendMem0     = "mem0"
	BackendZep      = "zep"
	BackendInMemory = "inmemory"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config is the complete benchmark configuration.
type Config struct {
	Dataset string `yaml:"dataset"`
	// Output is the result document path. Empty selects OutputPath's default.
	Output  string `yaml:"output"`
	Backend string `yaml:"backend"`
	Graph   bool   `yaml:"graph"`
	TopK    int    `yaml:"top_k"`
	// Filters are extra Mem0 search filters; user_id is always forced.
	Filters          map[string]any `yaml:"filters"`
	BatchSize        int            `yaml:"batch_size"`
	Category         *int           `yaml:"category"`
	IngestWorkers    int            `yaml:"ingest_workers"`
	AnswerWorkers    int            `yaml:"answer_workers"`
	MaxConversations int            `yaml:"max_conversations"`
	// Resume continues an existing result document instead of starting a
	// new one, skipping questions it already holds.
	Resume bool `yaml:"resume"`
	// RunID namespaces Zep users. Generated when empty.
	RunID string `yaml:"run_id"`

	Log   LogConfig   `yaml:"log"`
	Retry RetryConfig `yaml:"retry"`
	Model ModelConfig `yaml:"model"`
	Mem0  Mem0Config  `yaml:"mem0"`
	Zep   ZepConfig   `yaml:"zep"`
	S3    S3Config    `yaml:"s3"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Delay       time.Duration `yaml:"delay"`
}

type ModelConfig struct {
	Provider  string `yaml:"provider"`
	// Name is the provider model id; empty selects the adapter default.
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int64  `yaml:"max_tokens"`
	// MaxCalls caps the completions of one run; zero is unlimited.
	MaxCalls int `yaml:"max_calls"`
}

type Mem0Config struct {
	APIKey         string `yaml:"api_key"`
	OrganizationID string `yaml:"organization_id"`
	ProjectID      string `yaml:"project_id"`
	BaseURL        string `yaml:"base_url"`
	// SkipInstructions leaves the project's custom instructions untouched
	// on add.
	SkipInstructions bool `yaml:"skip_instructions"`
}

type ZepConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// S3Config selects the S3 result sink when Bucket is set.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`

	// Static credentials; when empty the default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Dataset:       "dataset/locomo10.json",
		Backend:       BackendMem0,
		TopK:          10,
		BatchSize:     2,
		IngestWorkers: 10,
		AnswerWorkers: 1,
		Log:           LogConfig{Level: "info", Format: "json"},
		Retry:         RetryConfig{MaxAttempts: 3, Delay: time.Second},
		Model:         ModelConfig{Provider: ProviderOpenAI, MaxTokens: 1024},
	}
}

// Load applies, in order, the defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory when present, the
// process environment and finally overrides such as command line flags.
// Provider credentials are resolved last, so they follow the provider an
// override selects.
func Load(path string, overrides ...func(c *Config)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	for _, fn := range overrides {
		fn(cfg)
	}
	cfg.ApplyProviderEnv(os.LookupEnv)
	return cfg, nil
}

func lookupInto(lookup func(string) (string, bool), dst *string, key string) {
	if v, ok := lookup(key); ok && v != "" {
		*dst = v
	}
}

// ApplyEnv overrides backend credentials and the model name from the
// environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	lookupInto(lookup, &c.Mem0.APIKey, "MEM0_API_KEY")
	lookupInto(lookup, &c.Mem0.OrganizationID, "MEM0_ORGANIZATION_ID")
	lookupInto(lookup, &c.Mem0.ProjectID, "MEM0_PROJECT_ID")
	lookupInto(lookup, &c.Zep.APIKey, "ZEP_API_KEY")
	lookupInto(lookup, &c.Model.Name, "MODEL")
}

// ApplyProviderEnv overrides the model API key (and the OpenAI base URL)
// with the variables of the configured provider.
func (c *Config) ApplyProviderEnv(lookup func(string) (string, bool)) {
	switch c.Model.Provider {
	case ProviderOpenAI:
		lookupInto(lookup, &c.Model.APIKey, "OPENAI_API_KEY")
		lookupInto(lookup, &c.Model.BaseURL, "OPENAI_BASE_URL")
	case ProviderAnthropic:
		lookupInto(lookup, &c.Model.APIKey, "ANTHROPIC_API_KEY")
	}
}

// OutputPath returns Output or a name derived from the backend settings.
func (c *Config) OutputPath() string {
	if c.Output != "" {
		return c.Output
	}
	return fmt.Sprintf("results/%s_results_top_%d_graph_%t.json", c.Backend, c.TopK, c.Graph)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendMem0, BackendZep, BackendInMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid backend %q (must be mem0, zep or inmemory)", c.Backend))
	}
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("invalid model provider %q (must be openai, anthropic or mock)", c.Model.Provider))
	}
	if c.Dataset == "" {
		errs = append(errs, errors.New("dataset path is required"))
	}
	if c.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", c.TopK))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.IngestWorkers <= 0 {
		errs = append(errs, fmt.Errorf("ingest_workers must be positive, got %d", c.IngestWorkers))
	}
	if c.AnswerWorkers <= 0 {
		errs = append(errs, fmt.Errorf("answer_workers must be positive, got %d", c.AnswerWorkers))
	}
	if c.MaxConversations < 0 {
		errs = append(errs, fmt.Errorf("max_conversations must not be negative, got %d", c.MaxConversations))
	}
	if c.Model.MaxCalls < 0 {
		errs = append(errs, fmt.Errorf("model.max_calls must not be negative, got %d", c.Model.MaxCalls))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}
	if c.S3.Bucket != "" && c.S3.Key == "" {
		errs = append(errs, errors.New("s3.key is required when s3.bucket is set"))
	}
	return errors.Join(errs...)
}
