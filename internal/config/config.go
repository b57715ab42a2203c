package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the crmsearch API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Search   SearchConfig   `yaml:"search"`
	Ranking  RankingConfig  `yaml:"ranking"`
	GDPR     GDPRConfig     `yaml:"gdpr"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds backend selection, expansion, and cache settings.
type SearchConfig struct {
	Backend           string `yaml:"backend"` // provider, bleve (default: provider)
	BlevePath         string `yaml:"bleve_path"`
	ExpansionStrategy string `yaml:"expansion_strategy"` // dictionary, llm (default: dictionary)
	MaxExpansions     int    `yaml:"max_expansions"`
	CacheTTLSec       int    `yaml:"cache_ttl_sec"`
	CacheL1Size       int    `yaml:"cache_l1_size"`
	BackendTimeoutSec int    `yaml:"backend_timeout_sec"`

	LLM LLMConfig `yaml:"llm"`
}

// LLMConfig holds settings for the LLM expansion strategy.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// RankingConfig holds personalization weights. Weights must sum to 1.0.
type RankingConfig struct {
	RecencyWeight     float64 `yaml:"recency_weight"`
	OwnershipWeight   float64 `yaml:"ownership_weight"`
	InteractionWeight float64 `yaml:"interaction_weight"`
	DecayDays         int     `yaml:"decay_days"`
	InteractionCap    int     `yaml:"interaction_cap"`
}

// GDPRConfig holds field masking settings.
type GDPRConfig struct {
	Enabled         *bool    `yaml:"enabled"` // default: true
	PIIFields       []string `yaml:"pii_fields"`
	PHIFields       []string `yaml:"phi_fields"`
	PHIAllowedRoles []string `yaml:"phi_allowed_roles"`
	AddressFields   []string `yaml:"address_fields"`
}

// MaskingEnabled reports whether GDPR masking is active (default true).
func (g GDPRConfig) MaskingEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.Backend == "" {
		c.Search.Backend = "provider"
	}
	if c.Search.BlevePath == "" {
		c.Search.BlevePath = "data/search.bleve"
	}
	if c.Search.ExpansionStrategy == "" {
		c.Search.ExpansionStrategy = "dictionary"
	}
	if c.Search.MaxExpansions <= 0 {
		c.Search.MaxExpansions = 5
	}
	if c.Search.CacheTTLSec <= 0 {
		c.Search.CacheTTLSec = 3600
	}
	if c.Search.CacheL1Size <= 0 {
		c.Search.CacheL1Size = 1024
	}
	if c.Search.BackendTimeoutSec <= 0 {
		c.Search.BackendTimeoutSec = 5
	}
	if c.Ranking.RecencyWeight == 0 && c.Ranking.OwnershipWeight == 0 && c.Ranking.InteractionWeight == 0 {
		c.Ranking.RecencyWeight = 0.30
		c.Ranking.OwnershipWeight = 0.40
		c.Ranking.InteractionWeight = 0.30
	}
	if c.Ranking.DecayDays <= 0 {
		c.Ranking.DecayDays = 365
	}
	if c.Ranking.InteractionCap <= 0 {
		c.Ranking.InteractionCap = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case "memory":
		// no addresses needed
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	switch c.Search.Backend {
	case "provider", "bleve":
	default:
		return fmt.Errorf("search.backend must be \"provider\" or \"bleve\", got %q", c.Search.Backend)
	}
	switch c.Search.ExpansionStrategy {
	case "dictionary":
	case "llm":
		if c.Search.LLM.APIKey == "" {
			return fmt.Errorf("search.llm.api_key is required for the llm expansion strategy")
		}
	default:
		return fmt.Errorf(
			"search.expansion_strategy must be \"dictionary\" or \"llm\", got %q",
			c.Search.ExpansionStrategy,
		)
	}
	sum := c.Ranking.RecencyWeight + c.Ranking.OwnershipWeight + c.Ranking.InteractionWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("ranking weights must sum to 1.0, got %.3f", sum)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
