package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/news-digest/models"
	"github.com/dtnitsch/news-digest/pkg/analytics"
	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/extractors"
	"github.com/dtnitsch/news-digest/pkg/fetcher"
	"github.com/dtnitsch/news-digest/pkg/mlclient"
	"github.com/dtnitsch/news-digest/pkg/query"
)

const base = extractors.TimesOfIndiaBaseURL

var stories = []struct {
	headline string
	url      string
	body     string
	label    string
}{
	{"Metro line opens", base + "city/delhi/metro/articleshow/1.cms", "The metro line opened with trains every five minutes.", "incident"},
	{"Assembly poll dates out", base + "city/delhi/poll/articleshow/2.cms", "The election commission announced assembly poll dates.", "politics"},
	{"Delhi wins cricket final", base + "city/delhi/cricket/articleshow/3.cms", "Delhi won the cricket final at the stadium.", "sports"},
}

func listingPage() string {
	var items, links []string
	for i, s := range stories {
		items = append(items, fmt.Sprintf(`{"url":%q,"name":%q}`, s.url, s.headline))
		if i != 1 {
			links = append(links, fmt.Sprintf(`<li><a href=%q title=%q>x</a></li>`, s.url, s.headline))
		}
	}
	return `<div id="c_articlelist_stories_1">{"itemListElement":[` + strings.Join(items, ",") + `]}</div>` +
		`<div id="c_articlelist_stories_1"><ul>` + strings.Join(links, "") + `</ul></div>`
}

func articlePage(body string) string {
	return fmt.Sprintf(`<html><head><script type="application/ld+json">{"@type":"NewsArticle","articleBody":%q}</script></head></html>`, body)
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	f := &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
	f.pages[base+"india/delhi"] = listingPage()
	for _, s := range stories {
		f.pages[s.url] = articlePage(s.body)
	}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, isArticle bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("%s|%t", url, isArticle))
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, &fetcher.FetchError{URL: url, StatusCode: 404}
	}
	return []byte(page), nil
}

func (f *fakeFetcher) articleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasSuffix(c, "|true") {
			n++
		}
	}
	return n
}

type fakeSummarizer struct {
	inputs [][]string
	err    error
	short  bool
}

func (s *fakeSummarizer) SummarizeBatch(_ context.Context, texts []string) ([]string, error) {
	s.inputs = append(s.inputs, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = "Summary: " + t
	}
	if s.short && len(out) > 0 {
		out = out[1:]
	}
	return out, nil
}

type fakeClassifier struct {
	labels map[string]string
	inputs []string
	cands  []string
}

func (c *fakeClassifier) ClassifyBatch(_ context.Context, texts, labels []string) ([]string, error) {
	c.inputs = texts
	c.cands = labels
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = c.labels[t]
	}
	return out, nil
}

func newClassifier() *fakeClassifier {
	c := &fakeClassifier{labels: map[string]string{}}
	for _, s := range stories {
		c.labels["Summary: "+s.body] = s.label
	}
	return c
}

func newPipeline(t *testing.T, f Fetcher, s Summarizer, c Classifier, opts Options) *Pipeline {
	t.Helper()
	p, err := New(Deps{
		Interpreter: query.New(query.WithLanguageDetection(false)),
		Fetcher:     f,
		Source:      extractors.NewTimesOfIndia(""),
		Summarizer:  s,
		Classifier:  c,
	}, opts)
	require.NoError(t, err)
	return p
}

func TestRunUnfilteredUsesTopIndex(t *testing.T) {
	f := newFakeFetcher()
	s := &fakeSummarizer{}
	c := newClassifier()
	p := newPipeline(t, f, s, c, Options{Workers: 2})

	d, err := p.Run(context.Background(), "latest news from delhi")
	require.NoError(t, err)

	assert.Equal(t, []string{"Metro line opens", "Delhi wins cricket final"}, d.Entries.Keys())
	require.Len(t, s.inputs, 1)
	assert.Equal(t, []string{stories[0].body, stories[2].body}, s.inputs[0])
	assert.Nil(t, c.inputs, "classifier is not called without a category")
	assert.Nil(t, d.Categories)
	assert.False(t, d.Filtered())
	assert.NotEmpty(t, d.RunID)
	assert.Equal(t, 2, f.articleCalls())
}

func TestRunWithCategoryUsesAllIndexAndFilters(t *testing.T) {
	f := newFakeFetcher()
	s := &fakeSummarizer{}
	c := newClassifier()
	p := newPipeline(t, f, s, c, Options{Workers: 3})

	d, err := p.Run(context.Background(), "delhi politics update")
	require.NoError(t, err)

	assert.Equal(t, "politics", d.Tags.Category)
	assert.Equal(t, []string{stories[0].body, stories[1].body, stories[2].body}, s.inputs[0])
	assert.Equal(t, query.Categories, c.cands)
	assert.Equal(t, []string{"Assembly poll dates out"}, d.Entries.Keys())
	assert.Equal(t, 3, d.Categories.Len())

	text := d.Text(40)
	assert.True(t, strings.HasPrefix(text, "Assembly poll dates out\n"))
}

func TestRunCategoryWithNoMatchesIsExplicitlyEmpty(t *testing.T) {
	p := newPipeline(t, newFakeFetcher(), &fakeSummarizer{}, newClassifier(), Options{})

	out, err := p.RunText(context.Background(), "delhi business")
	require.NoError(t, err)
	assert.Equal(t, "No business news found for delhi.\n", out)
}

func TestRunNoLocation(t *testing.T) {
	f := newFakeFetcher()
	p := newPipeline(t, f, &fakeSummarizer{}, newClassifier(), Options{})

	_, err := p.Run(context.Background(), "news")
	require.ErrorIs(t, err, ErrNoLocationDetected)
	assert.Equal(t, KindNoLocationDetected, ErrorKind(err))
	assert.Empty(t, f.calls)
}

func TestListingFetchFailureStopsBeforeArticles(t *testing.T) {
	f := newFakeFetcher()
	f.errs[base+"india/delhi"] = &fetcher.FetchError{URL: base + "india/delhi", Err: errors.New("connection refused")}
	s := &fakeSummarizer{}
	p := newPipeline(t, f, s, newClassifier(), Options{})

	_, err := p.Run(context.Background(), "sports news in delhi")
	require.Error(t, err)
	assert.Equal(t, KindFetchFailed, ErrorKind(err))
	assert.Equal(t, 0, f.articleCalls())
	assert.Empty(t, s.inputs)
}

func TestArticleFailureAbortsWithoutPartialDigest(t *testing.T) {
	f := newFakeFetcher()
	f.pages[stories[1].url] = "<html>redesigned</html>"
	s := &fakeSummarizer{}
	p := newPipeline(t, f, s, newClassifier(), Options{Workers: 1})

	_, err := p.Run(context.Background(), "delhi sports")
	require.Error(t, err)
	assert.Equal(t, KindExtractionFailed, ErrorKind(err))
	assert.Contains(t, err.Error(), "Assembly poll dates out")
	assert.Empty(t, s.inputs, "summarizer never sees a partial corpus")
}

func TestSummarizerErrors(t *testing.T) {
	p := newPipeline(t, newFakeFetcher(), &fakeSummarizer{err: errors.New("boom")}, newClassifier(), Options{})
	_, err := p.Run(context.Background(), "delhi")
	assert.Equal(t, KindSummarizeFailed, ErrorKind(err))

	p = newPipeline(t, newFakeFetcher(), &fakeSummarizer{short: true}, newClassifier(), Options{})
	_, err = p.Run(context.Background(), "delhi")
	assert.ErrorIs(t, err, mlclient.ErrSummarizeFailed)

	p = newPipeline(t, newFakeFetcher(), &fakeSummarizer{}, nil, Options{})
	_, err = p.Run(context.Background(), "delhi sports")
	assert.ErrorIs(t, err, mlclient.ErrClassifyFailed)
}

func TestRunKeywords(t *testing.T) {
	p := newPipeline(t, newFakeFetcher(), &fakeSummarizer{}, newClassifier(), Options{Keywords: 2})
	d, err := p.Run(context.Background(), "delhi sports")
	require.NoError(t, err)
	require.NotEmpty(t, d.Keywords)
	assert.Contains(t, d.Keywords, analytics.Keyword{Word: "cricket", Count: 1})
}

func TestHeadlines(t *testing.T) {
	f := newFakeFetcher()
	p := newPipeline(t, f, nil, nil, Options{})

	top, err := p.Headlines(context.Background(), "delhi", false)
	require.NoError(t, err)
	assert.Equal(t, 2, top.Len())

	all, err := p.Headlines(context.Background(), "New Delhi", true)
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())

	_, err = p.Headlines(context.Background(), "atlantis", false)
	assert.ErrorIs(t, err, ErrNoLocationDetected)
}

func TestNationalHeadlines(t *testing.T) {
	f := newFakeFetcher()
	f.pages[base+"india"] = `<div class="iN5CR"><a href="` + base + `india/x/articleshow/9.cms"><div class="WavNE">National story</div></a></div>`
	p := newPipeline(t, f, nil, nil, Options{})

	idx, err := p.NationalHeadlines(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"National story"}, idx.Keys())
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, KindCacheUnavailable, ErrorKind(fmt.Errorf("x: %w", cache.ErrCacheUnavailable)))
	assert.Equal(t, KindExtractionFailed, ErrorKind(&extractors.ExtractionError{PageType: "listing"}))
	assert.Equal(t, KindClassifyFailed, ErrorKind(mlclient.ErrClassifyFailed))
	assert.Equal(t, KindInternal, ErrorKind(errors.New("other")))
}

func TestDigestTextEmptyUnfiltered(t *testing.T) {
	d := &Digest{Tags: models.QueryTags{Location: "goa"}, Entries: models.NewOrderedMap[string]()}
	assert.True(t, d.Empty())
	assert.Equal(t, "No news found for goa.\n", d.Text(40))
}
