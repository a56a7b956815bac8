// Package common holds the setup shared by every CLI action.
package common

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/digest"
	"github.com/dtnitsch/news-digest/pkg/extractors"
	"github.com/dtnitsch/news-digest/pkg/fetcher"
	"github.com/dtnitsch/news-digest/pkg/logger"
	"github.com/dtnitsch/news-digest/pkg/mlclient"
	"github.com/dtnitsch/news-digest/pkg/query"
)

// Exit codes.
const (
	ExitFailure = 1
	ExitConfig  = 2
)

// Env is everything an action needs, built from flags and the config file.
type Env struct {
	Config  *models.Config
	Logger  logger.Logger
	Cache   *cache.Cache
	Fetcher *fetcher.Fetcher
	Source  extractors.PageSource
}

// LoadConfig reads the config selected by --config and applies --log-level / --quiet.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(models.ConfigPath(c.String("config")))
	if err != nil {
		return nil, err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if c.Bool("quiet") {
		cfg.Log.Level = "error"
	}
	return cfg, nil
}

// Bootstrap loads configuration, then opens the cache and builds the fetcher and
// page source. Configuration problems exit with ExitConfig.
func Bootstrap(c *cli.Context) (*Env, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error [Config]: %v", err), ExitConfig)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error [Config]: %v", err), ExitConfig)
	}

	src, err := extractors.DefaultRegistry(cfg.BaseURL).Resolve(cfg.Source)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error [Config]: %v", err), ExitConfig)
	}

	docs, err := cache.Open(cfg.Cache, cfg.BaseURL, cache.WithLogger(log.With(logger.String("component", "cache"))))
	if err != nil {
		return nil, Fail(err)
	}

	f, err := fetcher.New(fetcher.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Fetch.Timeout.Duration,
		UserAgent: cfg.Fetch.UserAgent,
	}, docs, log)
	if err != nil {
		docs.Close()
		return nil, cli.Exit(fmt.Sprintf("error [Config]: %v", err), ExitConfig)
	}

	return &Env{Config: cfg, Logger: log, Cache: docs, Fetcher: f, Source: src}, nil
}

func (e *Env) Close() {
	if err := e.Cache.Close(); err != nil {
		e.Logger.Warn("closing cache", logger.Error(err))
	}
	_ = e.Logger.Sync()
}

type PipelineOptions struct {
	Keywords       int
	DetectLanguage bool
}

// NewPipeline wires the digest pipeline with the configured model endpoints.
func (e *Env) NewPipeline(opts PipelineOptions) (*digest.Pipeline, error) {
	return digest.New(digest.Deps{
		Interpreter: query.New(query.WithLanguageDetection(opts.DetectLanguage)),
		Fetcher:     e.Fetcher,
		Source:      e.Source,
		Summarizer:  mlclient.NewSummarizer(e.Config.Summarizer, nil),
		Classifier:  mlclient.NewClassifier(e.Config.Classifier, nil),
		Logger:      e.Logger.With(logger.String("component", "pipeline")),
	}, digest.Options{
		Workers:   e.Config.Fetch.Workers,
		WrapWidth: e.Config.Output.WrapWidth,
		Keywords:  opts.Keywords,
		Labels:    query.Categories,
	})
}

// Fail turns an error into a CLI exit carrying its failure kind.
func Fail(err error) error {
	if err == nil {
		return nil
	}
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		return err
	}
	return cli.Exit(fmt.Sprintf("error [%s]: %v", digest.ErrorKind(err), err), ExitFailure)
}
