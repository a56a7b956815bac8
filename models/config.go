// Package models defines data structures shared across the digest packages.
package models

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "news-digest.yaml"

	configPathEnv    = "NEWS_DIGEST_CONFIG"
	mlAPIKeyEnv      = "NEWS_DIGEST_ML_API_KEY"
	summarizerURLEnv = "NEWS_DIGEST_SUMMARIZER_URL"
	classifierURLEnv = "NEWS_DIGEST_CLASSIFIER_URL"
	cacheDirEnv      = "NEWS_DIGEST_CACHE_DIR"
)

// Cache backends understood by the document cache.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Config holds runtime configuration for every command.
type Config struct {
	Source     string        `yaml:"source"`
	BaseURL    string        `yaml:"base_url"`
	Cache      CacheConfig   `yaml:"cache"`
	Fetch      FetchConfig   `yaml:"fetch"`
	Summarizer ServiceConfig `yaml:"summarizer"`
	Classifier ServiceConfig `yaml:"classifier"`
	Output     OutputConfig  `yaml:"output"`
	Log        LogConfig     `yaml:"log"`
}

// CacheConfig describes where fetched documents and their index live.
type CacheConfig struct {
	Backend   string   `yaml:"backend"`
	Dir       string   `yaml:"dir"`
	IndexFile string   `yaml:"index_file"`
	MirrorDir string   `yaml:"mirror_dir"`
	MaxAge    Duration `yaml:"max_age"`
}

// FetchConfig controls network access.
type FetchConfig struct {
	Timeout   Duration `yaml:"timeout"`
	Workers   int      `yaml:"workers"`
	UserAgent string   `yaml:"user_agent"`
}

// ServiceConfig points at a hosted model endpoint.
type ServiceConfig struct {
	Endpoint string   `yaml:"endpoint"`
	APIKey   string   `yaml:"api_key"`
	Timeout  Duration `yaml:"timeout"`
}

type OutputConfig struct {
	WrapWidth int `yaml:"wrap_width"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// IndexPath is the full path of the cache index (JSON file or sqlite database).
func (c CacheConfig) IndexPath() string {
	return filepath.Join(c.Dir, c.IndexFile)
}

// MirrorPath is the directory holding one raw document per cached URL.
func (c CacheConfig) MirrorPath() string {
	return filepath.Join(c.Dir, c.MirrorDir)
}

// Duration lets YAML carry Go duration strings ("1h", "20s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// DefaultConfig targets the Times of India site with a one-hour document cache.
func DefaultConfig() Config {
	return Config{
		Source:  "timesofindia",
		BaseURL: "https://timesofindia.indiatimes.com/",
		Cache: CacheConfig{
			Backend:   CacheBackendFile,
			Dir:       ".",
			IndexFile: "cache.json",
			MirrorDir: "html_files",
			MaxAge:    Duration{time.Hour},
		},
		Fetch: FetchConfig{
			Timeout:   Duration{20 * time.Second},
			Workers:   4,
			UserAgent: "news-digest/1.0",
		},
		Summarizer: ServiceConfig{
			Endpoint: "https://api-inference.huggingface.co/models/sshleifer/distilbart-cnn-12-6",
			Timeout:  Duration{2 * time.Minute},
		},
		Classifier: ServiceConfig{
			Endpoint: "https://api-inference.huggingface.co/models/AyoubChLin/DistilBart_cnn_zeroShot",
			Timeout:  Duration{2 * time.Minute},
		},
		Output: OutputConfig{WrapWidth: 40},
		Log:    LogConfig{Level: "info"},
	}
}

// ConfigPath resolves the config file location from the flag value and environment.
func ConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(configPathEnv); env != "" {
		return env
	}
	return DefaultConfigPath
}

// LoadConfig reads YAML over the defaults, applies environment overrides and validates.
// A missing file is not an error; the defaults are used.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.Summarizer.APIKey = v
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(summarizerURLEnv); v != "" {
		c.Summarizer.Endpoint = v
	}
	if v := os.Getenv(classifierURLEnv); v != "" {
		c.Classifier.Endpoint = v
	}
	if v := os.Getenv(cacheDirEnv); v != "" {
		c.Cache.Dir = v
	}
}

// Validate rejects configurations the commands cannot run with.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("config: source is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_url scheme must be http or https, got %q", u.Scheme)
	}
	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return fmt.Errorf("config: unknown cache backend %q (valid: file, sqlite)", c.Cache.Backend)
	}
	if c.Cache.IndexFile == "" || c.Cache.MirrorDir == "" {
		return fmt.Errorf("config: cache.index_file and cache.mirror_dir are required")
	}
	if c.Cache.MaxAge.Duration <= 0 {
		return fmt.Errorf("config: cache.max_age must be positive")
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("config: fetch.workers must be at least 1")
	}
	if c.Output.WrapWidth < 1 {
		return fmt.Errorf("config: output.wrap_width must be at least 1")
	}
	return nil
}
