package observatory

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stefanhermes-code/Observatory/observatory/internal/connector"
	"github.com/stefanhermes-code/Observatory/observatory/internal/websearch"
)

// Config configures the observatory service.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// Fetch settings shared by all connectors.
	Fetch connector.FetchConfig `yaml:"fetch"`

	// Engine settings for ingestion runs.
	Engine EngineConfig `yaml:"engine"`

	// Search provider selection and settings.
	Search SearchConfig `yaml:"search"`
}

// EngineConfig bounds one ingestion run.
type EngineConfig struct {
	// MaxConcurrent caps concurrent collection tasks (connectors + search
	// queries) and concurrent validation checks.
	MaxConcurrent int `yaml:"max_concurrent"`
	// RunDeadline bounds total ingestion wall-clock time. On expiry,
	// in-flight tasks are cancelled and the run proceeds with what it has.
	RunDeadline time.Duration `yaml:"run_deadline"`
	// TaskTimeout bounds one collection task.
	TaskTimeout time.Duration `yaml:"task_timeout"`
	// ValidateTimeout bounds one live-URL check.
	ValidateTimeout time.Duration `yaml:"validate_timeout"`
	// SkipValidation persists everything as not_checked.
	SkipValidation bool `yaml:"skip_validation"`
	// MaxQueries caps the query plan.
	MaxQueries int `yaml:"max_queries"`
	// ResultsPerQuery caps hits per search query.
	ResultsPerQuery int `yaml:"results_per_query"`
}

// SearchConfig selects and configures the search provider.
type SearchConfig struct {
	// Provider is "openai", "api", or "" to disable web search.
	Provider string `yaml:"provider"`

	API    websearch.APIConfig    `yaml:"api"`
	OpenAI websearch.OpenAIConfig `yaml:"openai"`
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "observatory.db"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 15 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 5 * 1024 * 1024
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (compatible; Observatory/2.0)"
	}
	if c.Engine.MaxConcurrent <= 0 {
		c.Engine.MaxConcurrent = 8
	}
	if c.Engine.RunDeadline <= 0 {
		c.Engine.RunDeadline = 5 * time.Minute
	}
	if c.Engine.TaskTimeout <= 0 {
		c.Engine.TaskTimeout = 45 * time.Second
	}
	if c.Engine.ValidateTimeout <= 0 {
		c.Engine.ValidateTimeout = 8 * time.Second
	}
	if c.Engine.MaxQueries <= 0 {
		c.Engine.MaxQueries = 30
	}
	if c.Engine.ResultsPerQuery <= 0 {
		c.Engine.ResultsPerQuery = 10
	}
	// API key values expand ${ENV} so secrets stay out of config files.
	c.Search.OpenAI.APIKey = os.Expand(c.Search.OpenAI.APIKey, os.Getenv)
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
