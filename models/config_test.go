package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.Cache.MaxAge.Duration)
	assert.Equal(t, "cache.json", cfg.Cache.IndexFile)
	assert.Equal(t, 40, cfg.Output.WrapWidth)
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news-digest.yaml")
	yml := `
cache:
  backend: sqlite
  index_file: cache.db
  max_age: 30m
fetch:
  workers: 8
  timeout: 5s
summarizer:
  endpoint: http://localhost:9000/summarize
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))
	t.Setenv("NEWS_DIGEST_ML_API_KEY", "k")
	t.Setenv("NEWS_DIGEST_CACHE_DIR", "/var/cache/news")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, CacheBackendSQLite, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Cache.MaxAge.Duration)
	assert.Equal(t, 8, cfg.Fetch.Workers)
	assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout.Duration)
	assert.Equal(t, "http://localhost:9000/summarize", cfg.Summarizer.Endpoint)
	assert.Equal(t, "k", cfg.Summarizer.APIKey)
	assert.Equal(t, "k", cfg.Classifier.APIKey)
	assert.Equal(t, filepath.Join("/var/cache/news", "cache.db"), cfg.Cache.IndexPath())
	assert.Equal(t, filepath.Join("/var/cache/news", "html_files"), cfg.Cache.MirrorPath())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad duration": "cache:\n  max_age: soon\n",
		"bad backend":  "cache:\n  backend: redis\n",
		"bad base":     "base_url: ftp://example.com/\n",
		"no workers":   "fetch:\n  workers: 0\n",
	}
	for name, yml := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(yml), 0600))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("NEWS_DIGEST_CONFIG", "")
	assert.Equal(t, DefaultConfigPath, ConfigPath(""))
	t.Setenv("NEWS_DIGEST_CONFIG", "/etc/news.yaml")
	assert.Equal(t, "/etc/news.yaml", ConfigPath(""))
	assert.Equal(t, "flag.yaml", ConfigPath("flag.yaml"))
}
