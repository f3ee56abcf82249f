// Package config handles configuration loading for Signalist.
// It supports YAML config files, a .env file and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Polygon PolygonConfig `mapstructure:"polygon" yaml:"polygon"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Digest  DigestConfig  `mapstructure:"digest"  yaml:"digest"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Auth    AuthConfig    `mapstructure:"auth"    yaml:"auth"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// PolygonConfig holds market-data provider settings.
type PolygonConfig struct {
	APIKey     string `mapstructure:"api_key"     yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// Outbound calls per minute; 0 disables throttling. The free tier allows 5.
	RequestsPerMinute int `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// StorageConfig selects the watchlist backend.
type StorageConfig struct {
	Driver  string `mapstructure:"driver"   yaml:"driver"` // "file" or "sqlite"
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LLMConfig holds LLM provider configuration for the digest job.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"    yaml:"provider"` // "gemini" or "ollama"
	GeminiKey   string  `mapstructure:"gemini_key"  yaml:"gemini_key"`
	OllamaURL   string  `mapstructure:"ollama_url"  yaml:"ollama_url"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// DigestConfig controls the daily news digest job.
type DigestConfig struct {
	Enabled     bool   `mapstructure:"enabled"      yaml:"enabled"`
	Schedule    string `mapstructure:"schedule"     yaml:"schedule"` // cron expression
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// AuthConfig holds the optional bearer-token check.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"    yaml:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "console" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.signalist/config.yaml (home directory)
//  3. /etc/signalist/config.yaml (system)
//
// A .env file in the working directory is loaded first if present.
// Environment variables override config file values.
// Format: SIGNALIST_<SECTION>_<KEY>, e.g., SIGNALIST_POLYGON_API_KEY
func Load() (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".signalist"))
	v.AddConfigPath("/etc/signalist")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadDotEnv()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SIGNALIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Polygon defaults
	v.SetDefault("polygon.base_url", "https://api.polygon.io")
	v.SetDefault("polygon.timeout_sec", 30)
	v.SetDefault("polygon.requests_per_minute", 0)

	// Storage defaults
	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.data_dir", ".data")

	// LLM defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.model", "") // each provider picks its own
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 2048)

	// Digest is off unless explicitly enabled
	v.SetDefault("digest.enabled", false)
	v.SetDefault("digest.schedule", "0 12 * * *")
	v.SetDefault("digest.max_attempts", 3)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	v.SetDefault("auth.enabled", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// The unprefixed names are the ones Polygon and Google document.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("POLYGON_API_KEY"); key != "" && cfg.Polygon.APIKey == "" {
		cfg.Polygon.APIKey = key
	}
	if key := os.Getenv("SIGNALIST_POLYGON_API_KEY"); key != "" {
		cfg.Polygon.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && cfg.LLM.GeminiKey == "" {
		cfg.LLM.GeminiKey = key
	}
	if key := os.Getenv("SIGNALIST_LLM_GEMINI_KEY"); key != "" {
		cfg.LLM.GeminiKey = key
	}
	if secret := os.Getenv("SIGNALIST_AUTH_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
}

// loadDotEnv loads ./.env into the process environment. Existing variables win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Addr returns the host:port the API server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
