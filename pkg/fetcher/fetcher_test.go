package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/logger"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestFetcher(t *testing.T, baseURL string, clock *testClock, timeout time.Duration) (*Fetcher, *cache.Cache) {
	t.Helper()
	cfg := models.DefaultConfig().Cache
	cfg.Dir = t.TempDir()
	c, err := cache.Open(cfg, baseURL, cache.WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	f, err := New(Options{BaseURL: baseURL, Timeout: timeout}, c, logger.NewNop())
	require.NoError(t, err)
	return f, c
}

func TestNormalize(t *testing.T) {
	clock := &testClock{t: time.Unix(1700000000, 0)}
	f, _ := newTestFetcher(t, "https://timesofindia.indiatimes.com/", clock, 0)

	tests := []struct {
		in   string
		want string
	}{
		{"india/delhi", "https://timesofindia.indiatimes.com/india/delhi"},
		{"/india/goa", "https://timesofindia.indiatimes.com/india/goa"},
		{"https://timesofindia.indiatimes.com/city/a/123.cms#comments", "https://timesofindia.indiatimes.com/city/a/123.cms"},
		{"https://example.com/x", "https://example.com/x"},
	}
	for _, tt := range tests {
		got, err := f.Normalize(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := f.Normalize("   ")
	assert.Error(t, err)
}

func TestFetchCachesAndServesFromCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("<html>" + r.URL.Path + "</html>"))
	}))
	defer srv.Close()

	clock := &testClock{t: time.Unix(1700000000, 0)}
	f, c := newTestFetcher(t, srv.URL+"/", clock, time.Second)

	body, err := f.Fetch(context.Background(), "india/delhi", false)
	require.NoError(t, err)
	assert.Equal(t, "<html>/india/delhi</html>", string(body))

	body, err = f.Fetch(context.Background(), "india/delhi", false)
	require.NoError(t, err)
	assert.Equal(t, "<html>/india/delhi</html>", string(body))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	entry, found, err := c.Get(srv.URL + "/india/delhi")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, clock.Now(), entry.FetchedAt)
	assert.False(t, entry.IsArticle)
}

func TestFetchRefetchesStaleListing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("page"))
	}))
	defer srv.Close()

	start := time.Unix(1700000000, 0)
	clock := &testClock{t: start}
	f, _ := newTestFetcher(t, srv.URL+"/", clock, time.Second)

	_, err := f.Fetch(context.Background(), "india/goa", false)
	require.NoError(t, err)

	clock.t = start.Add(3599 * time.Second)
	_, err = f.Fetch(context.Background(), "india/goa", false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	clock.t = start.Add(3601 * time.Second)
	_, err = f.Fetch(context.Background(), "india/goa", false)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestFetchArticleNeverRefetched(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte("article"))
	}))
	defer srv.Close()

	start := time.Unix(1700000000, 0)
	clock := &testClock{t: start}
	f, _ := newTestFetcher(t, srv.URL+"/", clock, time.Second)

	_, err := f.Fetch(context.Background(), "city/a/1.cms", true)
	require.NoError(t, err)

	clock.t = start.Add(30 * 24 * time.Hour)
	_, err = f.Fetch(context.Background(), "city/a/1.cms", true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchNon2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	clock := &testClock{t: time.Unix(1700000000, 0)}
	f, c := newTestFetcher(t, srv.URL+"/", clock, time.Second)

	_, err := f.Fetch(context.Background(), "india/nowhere", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, srv.URL+"/india/nowhere", fe.URL)

	_, found, err := c.Get(srv.URL + "/india/nowhere")
	require.NoError(t, err)
	assert.False(t, found, "failed fetches are not cached")
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	clock := &testClock{t: time.Unix(1700000000, 0)}
	f, _ := newTestFetcher(t, srv.URL+"/", clock, 50*time.Millisecond)

	_, err := f.Fetch(context.Background(), "india/slow", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFetchPassesThroughCacheErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("network must not be used when the cache is unavailable")
	}))
	defer srv.Close()

	cfg := models.DefaultConfig().Cache
	cfg.Dir = t.TempDir()
	c, err := cache.Open(cfg, srv.URL+"/")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, os.WriteFile(cfg.IndexPath(), []byte("not json"), 0600))

	f, err := New(Options{BaseURL: srv.URL + "/"}, c, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "india/delhi", false)
	assert.ErrorIs(t, err, cache.ErrCacheUnavailable)
	assert.False(t, errors.Is(err, ErrFetchFailed))
}

func TestFetchOversizedBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/big.cms":
			_, _ = w.Write([]byte(strings.Repeat("x", 33)))
		default:
			_, _ = w.Write([]byte(strings.Repeat("y", 32)))
		}
	}))
	defer srv.Close()

	cfg := models.DefaultConfig().Cache
	cfg.Dir = t.TempDir()
	c, err := cache.Open(cfg, srv.URL+"/")
	require.NoError(t, err)
	defer c.Close()

	f, err := New(Options{BaseURL: srv.URL + "/", MaxBodyBytes: 32}, c, nil)
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), "big.cms", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, found, err := c.Get(srv.URL + "/big.cms")
	require.NoError(t, err)
	assert.False(t, found, "oversized responses are not cached")

	body, err := f.Fetch(context.Background(), "fits.cms", true)
	require.NoError(t, err)
	assert.Len(t, body, 32)
}
