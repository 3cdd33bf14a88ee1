// Package config loads server configuration from defaults, an optional YAML
// file, and BLACKDUCK_* environment variables, in that precedence order.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the server needs to talk to a Black Duck Hub.
type Config struct {
	URL            string  `yaml:"url"`
	APIToken       string  `yaml:"apiToken"`
	TrustCert      bool    `yaml:"trustCert"`
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	RetryMax       int     `yaml:"retryMax"`
	RateLimit      float64 `yaml:"rateLimit"`
	LogLevel       string  `yaml:"logLevel"`
	LogFormat      string  `yaml:"logFormat"`
}

// Default returns the built-in configuration before file and environment
// overrides.
func Default() Config {
	return Config{
		TimeoutSeconds: 30,
		RetryMax:       3,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load builds the effective configuration. path names an optional YAML file;
// an empty path skips the file layer. Environment variables win over the
// file, the file wins over defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv overlays BLACKDUCK_* environment variables onto the config.
func (c *Config) applyEnv() error {
	if v := os.Getenv("BLACKDUCK_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv("BLACKDUCK_API_TOKEN"); v != "" {
		c.APIToken = v
	}
	if v := os.Getenv("BLACKDUCK_TRUST_CERT"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BLACKDUCK_TRUST_CERT %q: %w", v, err)
		}
		c.TrustCert = trust
	}
	if v := os.Getenv("BLACKDUCK_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BLACKDUCK_TIMEOUT_SECONDS %q: %w", v, err)
		}
		c.TimeoutSeconds = n
	}
	if v := os.Getenv("BLACKDUCK_RETRY_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BLACKDUCK_RETRY_MAX %q: %w", v, err)
		}
		c.RetryMax = n
	}
	if v := os.Getenv("BLACKDUCK_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid BLACKDUCK_RATE_LIMIT %q: %w", v, err)
		}
		c.RateLimit = f
	}
	if v := os.Getenv("BLACKDUCK_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("BLACKDUCK_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	return nil
}

// Validate checks required fields, naming the environment key that supplies
// each missing value.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("hub URL is not set (BLACKDUCK_URL or url in the config file)")
	}
	if c.APIToken == "" {
		return fmt.Errorf("API token is not set (BLACKDUCK_API_TOKEN or apiToken in the config file)")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", c.TimeoutSeconds)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry max must not be negative, got %d", c.RetryMax)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Level maps the configured log level onto slog. Unknown levels fall back
// to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler builds the slog handler matching the configured format and level.
// The server writes logs to stderr because stdout carries the MCP protocol.
func (c *Config) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if strings.ToLower(c.LogFormat) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
