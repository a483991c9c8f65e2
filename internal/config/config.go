// Package config loads server configuration from an optional YAML file
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const insecureSecret = "development-insecure-secret-change-me"

// Config is the full server configuration.
type Config struct {
	Env      string         `yaml:"env"`
	Addr     string         `yaml:"addr"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	AI       AIConfig       `yaml:"ai"`
	CORS     CORSConfig     `yaml:"cors"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// AIConfig configures the external text generator.
type AIConfig struct {
	// APIKey empty disables story generation.
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// DedupeTTL is how long an identical generation request is answered
	// from the previous result. Zero disables it.
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

// CORSConfig configures allowed browser origins.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// Default returns the configuration used when nothing is supplied.
func Default() *Config {
	return &Config{
		Env:      EnvLocal,
		Addr:     ":8000",
		LogLevel: "info",
		Database: DatabaseConfig{Path: "project-management.db"},
		Auth: AuthConfig{
			Secret:   insecureSecret,
			Issuer:   "project-management-api",
			Audience: "project-management-clients",
			TokenTTL: 30 * time.Minute,
		},
		AI: AIConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.7,
			MaxTokens:   1000,
			Timeout:     30 * time.Second,
			DedupeTTL:   30 * time.Second,
		},
		CORS: CORSConfig{Origins: []string{"*"}},
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults and
// then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("PM_ENV", c.Env)
	c.Addr = getEnv("PM_ADDR", c.Addr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Database.Path = getEnv("PM_DB_PATH", c.Database.Path)
	c.Auth.Secret = getEnv("JWT_SECRET", c.Auth.Secret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)
	c.Auth.Audience = getEnv("JWT_AUDIENCE", c.Auth.Audience)
	c.AI.APIKey = getEnv("GROQ_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = getEnv("AI_BASE_URL", c.AI.BaseURL)
	c.AI.Model = getEnv("AI_MODEL", c.AI.Model)

	var err error
	if c.Auth.TokenTTL, err = getDuration("TOKEN_TTL", c.Auth.TokenTTL); err != nil {
		return err
	}
	if c.AI.Timeout, err = getDuration("AI_TIMEOUT", c.AI.Timeout); err != nil {
		return err
	}
	if c.AI.DedupeTTL, err = getDuration("AI_DEDUPE_TTL", c.AI.DedupeTTL); err != nil {
		return err
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORS.Origins = origins
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.Secret == "" || (c.Env == EnvProd && c.Auth.Secret == insecureSecret) {
		errs = append(errs, errors.New("auth.secret must be set"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.AI.DedupeTTL < 0 {
		errs = append(errs, errors.New("ai.dedupe_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
