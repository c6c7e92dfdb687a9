package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Server configuration"`

	Database struct {
		DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:pantryscope.db?cache=shared&mode=rwc,description=Database connection string"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
		ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	} `yaml:"database" json:"database" jsonschema:"description=Database configuration"`

	Catalog CatalogConfig `yaml:"catalog" json:"catalog" jsonschema:"description=Recipe catalog ingestion configuration"`

	LLM LLMConfig `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for recipe generation"`

	Prefs PrefsConfig `yaml:"prefs" json:"prefs" jsonschema:"description=Preference extraction configuration"`
}

// RecipeFeed is one configured recipe feed source
type RecipeFeed struct {
	Name string   `yaml:"name" json:"name" jsonschema:"required,description=Feed display name"`
	URL  string   `yaml:"url" json:"url" jsonschema:"required,description=Feed URL (RSS or Atom)"`
	Tags []string `yaml:"tags" json:"tags,omitempty" jsonschema:"description=Extra tags applied to every recipe from this feed"`
}

// CatalogConfig holds recipe catalog ingestion settings
type CatalogConfig struct {
	Feeds          []RecipeFeed     `yaml:"feeds" json:"feeds,omitempty" jsonschema:"description=Recipe feed sources"`
	UpdateInterval time.Duration    `yaml:"update_interval" json:"update_interval" jsonschema:"default=30m,description=Catalog refresh interval"`
	MaxConcurrent  int              `yaml:"max_concurrent" json:"max_concurrent" jsonschema:"default=4,description=Maximum concurrent feed fetches"`
	Extraction     ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Recipe page extraction configuration"`
}

// ExtractionConfig holds recipe page extraction settings
type ExtractionConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Fetch each entry's page for full text"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per page"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=PantryScope/1.0,description=User agent for HTTP requests"`
}

// RecipesConfig holds generation-specific LLM settings
type RecipesConfig struct {
	Count       int  `yaml:"count" json:"count" jsonschema:"default=3,minimum=1,maximum=5,description=Number of recipes per generation request"`
	UseJSONMode bool `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=false,description=Use JSON response format (not all models support this)"`
}

// LLMConfig holds LLM settings for the recipe generator. An empty model
// disables generation; the rest of the application works without it.
type LLMConfig struct {
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint (empty for api.openai.com)"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3); empty disables generation"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.7,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=2000,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the LLM (optional)"`
	Recipes      RecipesConfig `yaml:"recipes" json:"recipes" jsonschema:"description=Generation-specific settings"`
}

// PrefsConfig holds preference extraction settings
type PrefsConfig struct {
	ExtraCuisines     []string                       `yaml:"extra_cuisines" json:"extra_cuisines,omitempty" jsonschema:"description=Cuisines added to the built-in vocabulary"`
	ExtraDietaryTerms []string                       `yaml:"extra_dietary_terms" json:"extra_dietary_terms,omitempty" jsonschema:"description=Dietary terms added to the built-in vocabulary"`
	Substitutions     map[string]map[string][]string `yaml:"substitutions" json:"substitutions,omitempty" jsonschema:"description=Substitution overrides keyed by dietary tag then ingredient"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for database
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "file:pantryscope.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 3600
	}

	// set defaults for catalog
	if cfg.Catalog.UpdateInterval == 0 {
		cfg.Catalog.UpdateInterval = 30 * time.Minute
	}
	if cfg.Catalog.MaxConcurrent == 0 {
		cfg.Catalog.MaxConcurrent = 4
	}
	if cfg.Catalog.Extraction.Timeout == 0 {
		cfg.Catalog.Extraction.Timeout = 30 * time.Second
	}
	if cfg.Catalog.Extraction.UserAgent == "" {
		cfg.Catalog.Extraction.UserAgent = "PantryScope/1.0"
	}

	// set defaults for LLM
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.7
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 2000
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.Recipes.Count == 0 {
		cfg.LLM.Recipes.Count = 3
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	// validate server config
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	// validate catalog config
	for i, feed := range cfg.Catalog.Feeds {
		if feed.URL == "" {
			return fmt.Errorf("catalog.feeds[%d].url is required", i)
		}
		if feed.Name == "" {
			return fmt.Errorf("catalog.feeds[%d].name is required", i)
		}
	}
	if cfg.Catalog.Extraction.Enabled && cfg.Catalog.Extraction.Timeout < time.Second {
		return fmt.Errorf("catalog extraction timeout must be at least 1 second")
	}

	// validate LLM config, only when generation is enabled
	if cfg.LLM.Model != "" {
		if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
			return fmt.Errorf("llm.temperature must be between 0 and 2")
		}
		if cfg.LLM.Recipes.Count < 1 || cfg.LLM.Recipes.Count > 5 {
			return fmt.Errorf("llm.recipes.count must be between 1 and 5")
		}
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetCatalogConfig returns recipe catalog configuration
func (c *Config) GetCatalogConfig() CatalogConfig {
	return c.Catalog
}

// GetLLMConfig returns LLM configuration
func (c *Config) GetLLMConfig() LLMConfig {
	return c.LLM
}

// GetPrefsConfig returns preference extraction configuration
func (c *Config) GetPrefsConfig() PrefsConfig {
	return c.Prefs
}
