// Package config loads the abilityd YAML configuration.
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

// Config holds the abilityd service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"elasticsearch"`
	Search   SearchConfig   `yaml:"search"`
	Fallback FallbackConfig `yaml:"fallback"`
	Login    LoginConfig    `yaml:"login"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: env-driven)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	UseSSL      bool   `yaml:"use_ssl"`
	VerifyCerts bool   `yaml:"verify_certs"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// SearchConfig holds product search tunables.
type SearchConfig struct {
	Index         string  `yaml:"index"`
	DefaultSize   int     `yaml:"default_size"`
	Fuzziness     string  `yaml:"fuzziness"` // AUTO, 0, 1, 2
	MinScore      float64 `yaml:"min_score"`
	MaxAttempts   int     `yaml:"max_attempts"`
	BackoffBaseMS int     `yaml:"backoff_base_ms"`
}

// FallbackConfig holds fallback recommendation settings.
type FallbackConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Keywords []string `yaml:"keywords"`
	Size     int      `yaml:"size"`
}

// StaticUser is a config-declared credential used when the vendor store is
// unreachable.
type StaticUser struct {
	Password   string `yaml:"password"`
	MerchantID string `yaml:"merchant_id"`
}

// LoginConfig holds vendor credential store settings.
type LoginConfig struct {
	DBPath          string                `yaml:"db_path"`
	FallbackEnabled bool                  `yaml:"fallback_enabled"`
	Users           map[string]StaticUser `yaml:"users"`
}

// CrawlerConfig holds web crawler settings.
type CrawlerConfig struct {
	TimeoutSec   int   `yaml:"timeout_sec"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
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
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.Port <= 0 {
		c.Engine.Port = 9200
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 30
	}
	if c.Search.Index == "" {
		c.Search.Index = "products"
	}
	if c.Search.DefaultSize <= 0 {
		c.Search.DefaultSize = 5
	}
	if c.Search.Fuzziness == "" {
		c.Search.Fuzziness = "AUTO"
	}
	if c.Search.MinScore <= 0 {
		c.Search.MinScore = 0.5
	}
	if c.Search.MaxAttempts <= 0 {
		c.Search.MaxAttempts = 3
	}
	if c.Search.BackoffBaseMS <= 0 {
		c.Search.BackoffBaseMS = 1000
	}
	if len(c.Fallback.Keywords) == 0 {
		c.Fallback.Keywords = []string{"earring", "bracelet", "necklace"}
	}
	if c.Fallback.Size <= 0 {
		c.Fallback.Size = 3
	}
	if c.Login.DBPath == "" {
		c.Login.DBPath = "data/vendors.db"
	}
	if c.Crawler.TimeoutSec <= 0 {
		c.Crawler.TimeoutSec = 15
	}
	if c.Crawler.MaxBodyBytes <= 0 {
		c.Crawler.MaxBodyBytes = 4 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Engine.Host == "" {
		return fmt.Errorf("elasticsearch.host is required")
	}
	switch c.Search.Fuzziness {
	case "AUTO", "0", "1", "2":
		// ok
	default:
		return fmt.Errorf("search.fuzziness must be AUTO, 0, 1 or 2, got %q", c.Search.Fuzziness)
	}
	if c.Fallback.Enabled && len(c.Fallback.Keywords) == 0 {
		return fmt.Errorf("fallback.keywords is required when fallback is enabled")
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
