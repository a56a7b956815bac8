// Package cache is the document cache: a URL-keyed index of fetch metadata plus
// the on-disk mirror holding each raw document.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/artifact_manager"
	"github.com/dtnitsch/news-digest/pkg/logger"
)

// DefaultMaxAge is how long a listing page stays fresh. Articles never go stale.
const DefaultMaxAge = time.Hour

// ErrCacheUnavailable means the index exists but cannot be read or decoded.
var ErrCacheUnavailable = errors.New("cache unavailable")

// Cache serializes access to the index and mirror within one process.
// Separate processes sharing the same files are last-writer-wins.
type Cache struct {
	mu     sync.Mutex
	store  Store
	mirror *artifact_manager.Manager
	maxAge time.Duration
	now    func() time.Time
	logger logger.Logger
}

type Option func(*Cache)

func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New wraps an initialized store and mirror.
func New(store Store, mirror *artifact_manager.Manager, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		mirror: mirror,
		maxAge: DefaultMaxAge,
		now:    time.Now,
		logger: logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open builds the store for the configured backend, creates it on first run,
// and prepares the mirror directory.
func Open(cfg models.CacheConfig, baseURL string, opts ...Option) (*Cache, error) {
	var store Store
	switch cfg.Backend {
	case models.CacheBackendSQLite:
		store = NewSQLiteStore(cfg.IndexPath())
	default:
		store = NewFileStore(cfg.IndexPath())
	}

	created, err := store.Init()
	if err != nil {
		return nil, err
	}

	mirror, err := artifact_manager.NewManager(cfg.MirrorPath(), baseURL)
	if err != nil {
		store.Close()
		return nil, err
	}

	c := New(store, mirror, append([]Option{WithMaxAge(cfg.MaxAge.Duration)}, opts...)...)
	if created {
		c.logger.Info("initialized empty document cache",
			logger.String("index", cfg.IndexPath()),
			logger.String("backend", cfg.Backend))
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.store.Close()
}

// Mirror exposes the document mirror for inspection commands.
func (c *Cache) Mirror() *artifact_manager.Manager {
	return c.mirror
}

// Get returns the cached entry for a normalized URL. An index record whose mirror
// file has disappeared counts as absent.
func (c *Cache) Get(url string) (models.CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Load()
	if err != nil {
		return models.CacheEntry{}, false, err
	}
	rec, ok := records[url]
	if !ok {
		return models.CacheEntry{}, false, nil
	}

	body, found, err := c.mirror.Read(url)
	if err != nil {
		return models.CacheEntry{}, false, err
	}
	if !found {
		c.logger.Warn("cache index entry has no mirrored document",
			logger.String("url", url),
			logger.String("path", c.mirror.Path(url)))
		return models.CacheEntry{}, false, nil
	}

	return models.CacheEntry{
		URL:       url,
		IsArticle: rec.Article,
		FetchedAt: rec.FetchedAt(),
		Body:      body,
	}, true, nil
}

// Put stores the document in the mirror, then rewrites the index. Both are on disk
// when Put returns. An entry once stored as an article stays an article.
func (c *Cache) Put(entry models.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Load()
	if err != nil {
		return err
	}

	if err := c.mirror.Write(entry.URL, entry.Body); err != nil {
		return fmt.Errorf("mirroring %s: %w", entry.URL, err)
	}

	isArticle := entry.IsArticle
	if prev, ok := records[entry.URL]; ok && prev.Article {
		isArticle = true
	}
	records[entry.URL] = IndexRecord{Article: isArticle, Time: epochSeconds(entry.FetchedAt)}

	if err := c.store.Save(records); err != nil {
		return fmt.Errorf("saving cache index: %w", err)
	}
	return nil
}

// IsStale reports whether a listing entry is older than the max age. Articles are never stale.
func (c *Cache) IsStale(entry models.CacheEntry) bool {
	if entry.IsArticle {
		return false
	}
	return c.now().Sub(entry.FetchedAt) > c.maxAge
}

// Now is the cache clock, shared with the fetcher so fetched_at and staleness agree.
func (c *Cache) Now() time.Time {
	return c.now()
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries       int
	Articles      int
	Listings      int
	StaleListings int
	MirrorBytes   int64
}

func (c *Cache) Stats() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.store.Load()
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	now := c.now()
	for _, rec := range records {
		s.Entries++
		if rec.Article {
			s.Articles++
			continue
		}
		s.Listings++
		if now.Sub(rec.FetchedAt()) > c.maxAge {
			s.StaleListings++
		}
	}

	size, err := c.mirror.Size()
	if err != nil {
		return Stats{}, err
	}
	s.MirrorBytes = size
	return s, nil
}
