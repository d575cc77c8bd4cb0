package fetch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cryodata/iceflow/internal/retry"
)

// Config controls catalog search and granule download behaviour.
type Config struct {
	// BaseURL is the root of the CMR search API.
	BaseURL string `yaml:"base_url"`

	// Token is an Earthdata Login bearer token. Search works anonymously;
	// most granule downloads do not.
	Token string `yaml:"token"`

	// PageSize is the CMR page size for granule searches.
	PageSize int `yaml:"page_size"`

	// Concurrency bounds the number of parallel granule downloads.
	Concurrency int `yaml:"concurrency"`

	// RequestsPerSecond is a client-side rate limit across all requests.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Timeout applies to each individual HTTP request.
	Timeout time.Duration `yaml:"timeout"`

	Retry retry.Config `yaml:"retry"`
}

// UnmarshalYAML accepts the timeout as a duration string like "10m".
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		BaseURL           string       `yaml:"base_url"`
		Token             string       `yaml:"token"`
		PageSize          int          `yaml:"page_size"`
		Concurrency       int          `yaml:"concurrency"`
		RequestsPerSecond float64      `yaml:"requests_per_second"`
		Timeout           string       `yaml:"timeout"`
		Retry             retry.Config `yaml:"retry"`
	}{
		BaseURL:           c.BaseURL,
		Token:             c.Token,
		PageSize:          c.PageSize,
		Concurrency:       c.Concurrency,
		RequestsPerSecond: c.RequestsPerSecond,
		Retry:             c.Retry,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.BaseURL = raw.BaseURL
	c.Token = raw.Token
	c.PageSize = raw.PageSize
	c.Concurrency = raw.Concurrency
	c.RequestsPerSecond = raw.RequestsPerSecond
	c.Retry = raw.Retry
	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return fmt.Errorf("fetch timeout: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// DefaultConfig returns the configuration used when no file or overrides are
// provided.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://cmr.earthdata.nasa.gov/search",
		PageSize:          2000,
		Concurrency:       4,
		RequestsPerSecond: 5,
		Timeout:           10 * time.Minute,
		Retry:             retry.DefaultConfig(),
	}
}

// LoadConfig reads a yaml configuration file over the defaults and applies
// environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read fetch config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse fetch config %q: %w", path, err)
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// ConfigFromEnv returns the default configuration with environment overrides
// applied.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	cfg.normalize()
	return cfg
}

func (c *Config) applyEnv() {
	if token := os.Getenv("EARTHDATA_TOKEN"); token != "" {
		c.Token = token
	}
	if base := os.Getenv("ICEFLOW_CMR_BASE_URL"); base != "" {
		c.BaseURL = base
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.PageSize <= 0 {
		c.PageSize = def.PageSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
}
