package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/logger"
)

const (
	DefaultTimeout   = 20 * time.Second
	DefaultUserAgent = "news-digest/1.0"

	DefaultMaxBodyBytes = 16 << 20
)

var (
	// ErrFetchFailed matches every FetchError.
	ErrFetchFailed = errors.New("fetch failed")

	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// FetchError reports a network failure, timeout, or non-2xx response.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status code %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Client    *http.Client
	// MaxBodyBytes caps a response body; larger responses fail instead of being truncated.
	MaxBodyBytes int64
}

// Fetcher returns page bodies, from the document cache when fresh and from the
// network otherwise.
type Fetcher struct {
	client    *http.Client
	base      *url.URL
	timeout   time.Duration
	userAgent string
	maxBody   int64
	cache     *cache.Cache
	logger    logger.Logger
}

func New(opts Options, c *cache.Cache, log logger.Logger) (*Fetcher, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if c == nil {
		return nil, errors.New("fetcher requires a document cache")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Fetcher{
		client:    client,
		base:      base,
		timeout:   timeout,
		userAgent: ua,
		maxBody:   maxBody,
		cache:     c,
		logger:    log.With(logger.String("component", "fetcher")),
	}, nil
}

// Normalize resolves site-relative links against the base origin and drops fragments.
// Absolute URLs keep their own host.
func (f *Fetcher) Normalize(rawURL string) (string, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return "", errors.New("empty URL")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	u := f.base.ResolveReference(ref)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// BaseURL is the origin relative links resolve against.
func (f *Fetcher) BaseURL() string {
	return f.base.String()
}

// Fetch returns the body for rawURL. A present, non-stale cache entry is served
// without network access; otherwise the page is downloaded and cached before returning.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, isArticle bool) ([]byte, error) {
	u, err := f.Normalize(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	entry, found, err := f.cache.Get(u)
	if err != nil {
		return nil, err
	}
	if found && !f.cache.IsStale(entry) {
		f.logger.Debug("cache hit", logger.String("url", u))
		return entry.Body, nil
	}
	if found {
		f.logger.Debug("cache entry stale", logger.String("url", u), logger.Time("fetched_at", entry.FetchedAt))
	}

	body, err := f.get(ctx, u)
	if err != nil {
		return nil, err
	}

	err = f.cache.Put(models.CacheEntry{
		URL:       u,
		IsArticle: isArticle,
		FetchedAt: f.cache.Now(),
		Body:      body,
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, f.maxBody)}
	}

	f.logger.Info("fetched page",
		logger.String("url", u),
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Duration("elapsed", time.Since(start)))
	return body, nil
}
