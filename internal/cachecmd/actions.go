package cachecmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/news-digest/internal/common"
	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/logger"
	"github.com/dtnitsch/news-digest/pkg/parser"
)

// InitAction creates the cache index and mirror directory on first run. An
// existing index is left untouched, even if it is unreadable.
func InitAction(c *cli.Context) error {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error [Config]: %v", err), common.ExitConfig)
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error [Config]: %v", err), common.ExitConfig)
	}
	defer log.Sync()

	docs, err := cache.Open(cfg.Cache, cfg.BaseURL, cache.WithLogger(log))
	if err != nil {
		return common.Fail(err)
	}
	defer docs.Close()

	if _, err := docs.Stats(); err != nil {
		fmt.Fprintf(c.App.ErrWriter, "cache index %s exists but is unreadable; fix or remove it\n", cfg.Cache.IndexPath())
		return common.Fail(err)
	}

	fmt.Fprintf(c.App.Writer, "Cache ready: index %s (%s), mirror %s\n",
		cfg.Cache.IndexPath(), cfg.Cache.Backend, docs.Mirror().Dir())
	return nil
}

// StatsAction prints entry counts and mirror size.
func StatsAction(c *cli.Context) error {
	env, err := common.Bootstrap(c)
	if err != nil {
		return err
	}
	defer env.Close()

	s, err := env.Cache.Stats()
	if err != nil {
		return common.Fail(err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Index:          %s (%s)\n", env.Config.Cache.IndexPath(), env.Config.Cache.Backend)
	fmt.Fprintf(out, "Mirror:         %s\n", env.Cache.Mirror().Dir())
	fmt.Fprintf(out, "Entries:        %d\n", s.Entries)
	fmt.Fprintf(out, "Articles:       %d\n", s.Articles)
	fmt.Fprintf(out, "Listings:       %d (%d stale, max age %s)\n", s.Listings, s.StaleListings, env.Config.Cache.MaxAge.Duration)
	fmt.Fprintf(out, "Mirror size:    %s\n", humanize.Bytes(uint64(s.MirrorBytes)))
	return nil
}

// ShowAction prints a cached document, raw or as readable text.
func ShowAction(c *cli.Context) error {
	raw := common.SanitizeURL(c.Args().First())
	if raw == "" {
		return cli.Exit("error [Usage]: a URL is required", common.ExitFailure)
	}

	env, err := common.Bootstrap(c)
	if err != nil {
		return err
	}
	defer env.Close()

	u, err := env.Fetcher.Normalize(raw)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error [Usage]: %v", err), common.ExitFailure)
	}

	entry, found, err := env.Cache.Get(u)
	if err != nil {
		return common.Fail(err)
	}
	if !found {
		return cli.Exit(fmt.Sprintf("error [NotCached]: %s is not in the cache", u), common.ExitFailure)
	}

	env.Logger.Info("cached document",
		logger.String("url", u),
		logger.Bool("article", entry.IsArticle),
		logger.Bool("stale", env.Cache.IsStale(entry)),
		logger.Time("fetched_at", entry.FetchedAt),
		logger.String("sha256", common.ContentHash(entry.Body)))

	if !c.Bool("readable") {
		_, err := c.App.Writer.Write(entry.Body)
		return err
	}

	r, err := (&parser.Parser{}).ParseReadable(u, entry.Body)
	if err != nil {
		return common.Fail(err)
	}
	fmt.Fprint(c.App.Writer, r.Text())
	return nil
}
