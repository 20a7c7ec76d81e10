// Package config handles configuration loading for AlphaGraph.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"       yaml:"llm"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"`
	Dashboard DashboardConfig `mapstructure:"dashboard" yaml:"dashboard"`
	Ingest    IngestConfig    `mapstructure:"ingest"    yaml:"ingest"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Primary     string  `mapstructure:"primary"     yaml:"primary"` // "gemini", "openai", "ollama"
	GeminiKey   string  `mapstructure:"gemini_key"  yaml:"gemini_key"`
	OpenAIKey   string  `mapstructure:"openai_key"  yaml:"openai_key"`
	OllamaURL   string  `mapstructure:"ollama_url"  yaml:"ollama_url"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// StoreConfig holds analysis persistence settings.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // SQLite database file
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// DashboardConfig holds dashboard client settings.
type DashboardConfig struct {
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url"` // base URL of the API, e.g. "http://localhost:8080"
	NewsLimit  int    `mapstructure:"news_limit"  yaml:"news_limit"`  // analyses shown per refresh
}

// IngestConfig holds RSS feed ingestion settings.
type IngestConfig struct {
	Feeds        []FeedConfig `mapstructure:"feeds"          yaml:"feeds"`
	MaxPerFeed   int          `mapstructure:"max_per_feed"   yaml:"max_per_feed"`
	RequestsPerS int          `mapstructure:"requests_per_s" yaml:"requests_per_s"`
}

// FeedConfig identifies a single RSS news feed.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"` // "debug", "info", "warn", "error"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.alphagraph/config.yaml (home directory)
//  3. /etc/alphagraph/config.yaml (system)
//
// Environment variables override config file values.
// Format: ALPHAGRAPH_<SECTION>_<KEY>, e.g. ALPHAGRAPH_LLM_GEMINI_KEY.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".alphagraph"))
	v.AddConfigPath("/etc/alphagraph")

	v.SetEnvPrefix("ALPHAGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("ALPHAGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.primary", "gemini")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gemini-2.0-flash")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2048)

	// Store defaults
	v.SetDefault("store.path", "alphagraph.db")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Dashboard defaults
	v.SetDefault("dashboard.backend_url", "http://localhost:8080")
	v.SetDefault("dashboard.news_limit", 10)

	// Ingest defaults
	v.SetDefault("ingest.max_per_feed", 10)
	v.SetDefault("ingest.requests_per_s", 2)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("ALPHAGRAPH_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("ALPHAGRAPH_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	// Accept the variable name used by the original deployment scripts.
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = key
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
