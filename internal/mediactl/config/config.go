package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIKey   string        `yaml:"api_key,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Parallel int           `yaml:"parallel,omitempty"`
	Timeouts TimeoutConfig `yaml:"timeouts,omitempty"`
}

// TimeoutConfig holds configurable timeout durations for various operations.
// All durations are specified as strings parseable by time.ParseDuration (e.g., "5m", "30s", "1h").
type TimeoutConfig struct {
	HTTP        string `yaml:"http,omitempty"`         // Returned by GetTimeout("http") (default: 5m); the API client keeps its own fixed 5m timeout and does not read it
	Upload      string `yaml:"upload,omitempty"`       // Upload wait timeout (default: 5m)
	StatusWatch string `yaml:"status_watch,omitempty"` // Resource status watch (default: 10m)
}

const (
	DefaultBaseURL  = "https://videosite.example"
	DefaultParallel = 4

	// Environment variable names for configuration overrides
	EnvAPIKey  = "MEDIACTL_API_KEY"
	EnvBaseURL = "MEDIACTL_BASE_URL"

	// Default timeout durations
	DefaultHTTPTimeout        = 5 * time.Minute
	DefaultUploadTimeout      = 5 * time.Minute
	DefaultStatusWatchTimeout = 10 * time.Minute
)

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mediactl"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:  DefaultBaseURL,
		Parallel: DefaultParallel,
	}

	path, err := Path()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Parallel == 0 {
		cfg.Parallel = DefaultParallel
	}

	// Environment variables take precedence over config file
	if envKey := os.Getenv(EnvAPIKey); envKey != "" {
		cfg.APIKey = envKey
	}
	if envURL := os.Getenv(EnvBaseURL); envURL != "" {
		cfg.BaseURL = envURL
	}

	return cfg, nil
}

func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) IsAuthenticated() bool {
	return c.APIKey != ""
}

func (c *Config) ClearAuth() error {
	c.APIKey = ""
	return c.Save()
}

func (c *Config) SetAPIKey(key string) error {
	c.APIKey = key
	return c.Save()
}

// GetTimeout returns the configured timeout for the given operation, or the default if not set.
// Valid names: "http", "upload", "status_watch"
func (c *Config) GetTimeout(name string) time.Duration {
	var configValue string
	var defaultValue time.Duration

	switch name {
	case "http":
		configValue = c.Timeouts.HTTP
		defaultValue = DefaultHTTPTimeout
	case "upload":
		configValue = c.Timeouts.Upload
		defaultValue = DefaultUploadTimeout
	case "status_watch":
		configValue = c.Timeouts.StatusWatch
		defaultValue = DefaultStatusWatchTimeout
	default:
		return 5 * time.Minute // fallback default
	}

	if configValue == "" {
		return defaultValue
	}

	parsed, err := time.ParseDuration(configValue)
	if err != nil {
		return defaultValue
	}
	return parsed
}
