package extractors

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/news-digest/models"
)

const (
	TimesOfIndiaName    = "timesofindia"
	TimesOfIndiaBaseURL = "https://timesofindia.indiatimes.com/"

	toiListingContainer = `div[id="c_articlelist_stories_1"]`
	toiFrontPageCard    = "div.iN5CR"
	toiFrontPageTitle   = "div.WavNE"
	toiNationalSection  = "india"
)

// TimesOfIndia reads region listings, articles and the national front page of
// timesofindia.indiatimes.com.
type TimesOfIndia struct {
	base string
}

var _ PageSource = (*TimesOfIndia)(nil)

// NewTimesOfIndia builds the source; an empty baseURL selects the public site.
func NewTimesOfIndia(baseURL string) *TimesOfIndia {
	if baseURL == "" {
		baseURL = TimesOfIndiaBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &TimesOfIndia{base: baseURL}
}

func (t *TimesOfIndia) Name() string { return TimesOfIndiaName }

func (t *TimesOfIndia) BaseURL() string { return t.base }

func (t *TimesOfIndia) ListingPath(location string) string {
	return toiNationalSection + "/" + location
}

func (t *TimesOfIndia) FrontPagePath() string { return toiNationalSection }

type itemList struct {
	ItemListElement []struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	} `json:"itemListElement"`
}

// ExtractListing returns the curated top stories and the full story list of a
// region page. The full list comes from the embedded ItemList JSON, the top list
// from the rendered links.
func (t *TimesOfIndia) ExtractListing(doc []byte) (*models.HeadlineIndex, *models.HeadlineIndex, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, nil, t.fail(PageListing, fmt.Sprintf("parsing HTML: %v", err))
	}

	containers := page.Find(toiListingContainer)
	if containers.Length() == 0 {
		return nil, nil, t.fail(PageListing, "no story list containers")
	}

	var all *models.HeadlineIndex
	var top *models.HeadlineIndex
	containers.Each(func(_ int, s *goquery.Selection) {
		if all == nil {
			if idx := listFromJSON(s); idx != nil {
				all = idx
				return
			}
		}
		if top == nil {
			if idx := listFromLinks(s); idx.Len() > 0 {
				top = idx
			}
		}
	})

	if all == nil {
		return nil, nil, t.fail(PageListing, "no ItemList JSON block")
	}
	if top == nil {
		return nil, nil, t.fail(PageListing, "no rendered headline links")
	}
	return top, all, nil
}

// listFromJSON decodes the container text, or an ld+json script inside it, as an ItemList.
func listFromJSON(s *goquery.Selection) *models.HeadlineIndex {
	candidates := []string{s.Text()}
	s.Find(`script[type="application/ld+json"]`).Each(func(_ int, sc *goquery.Selection) {
		candidates = append(candidates, sc.Text())
	})

	for _, raw := range candidates {
		var list itemList
		if err := decodeLenient([]byte(raw), &list); err != nil || len(list.ItemListElement) == 0 {
			continue
		}
		idx := models.NewOrderedMap[string]()
		for _, item := range list.ItemListElement {
			name := strings.TrimSpace(item.Name)
			link := strings.TrimSpace(item.URL)
			if name == "" || link == "" {
				continue
			}
			idx.Set(name, link)
		}
		if idx.Len() > 0 {
			return idx
		}
	}
	return nil
}

func listFromLinks(s *goquery.Selection) *models.HeadlineIndex {
	idx := models.NewOrderedMap[string]()
	s.Find("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").First()
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		headline := strings.TrimSpace(a.AttrOr("title", ""))
		if headline == "" {
			headline = strings.Join(strings.Fields(a.Text()), " ")
		}
		if headline == "" {
			return
		}
		idx.Set(headline, strings.TrimSpace(href))
	})
	return idx
}

// ExtractArticle returns the articleBody of the page's structured metadata block.
func (t *TimesOfIndia) ExtractArticle(doc []byte) (string, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return "", t.fail(PageArticle, fmt.Sprintf("parsing HTML: %v", err))
	}

	scripts := page.Find("script")
	// The metadata block sits near the end of the page; search from the bottom.
	for i := scripts.Length() - 1; i >= 0; i-- {
		raw := strings.TrimSpace(scripts.Eq(i).Text())
		if raw == "" || (raw[0] != '{' && raw[0] != '[') {
			continue
		}
		var v any
		if err := decodeLenient([]byte(raw), &v); err != nil {
			continue
		}
		if body := findArticleBody(v); body != "" {
			return body, nil
		}
	}
	return "", t.fail(PageArticle, "no metadata block with articleBody")
}

// findArticleBody walks objects, arrays and @graph wrappers.
func findArticleBody(v any) string {
	switch node := v.(type) {
	case map[string]any:
		if body, ok := node["articleBody"].(string); ok && strings.TrimSpace(body) != "" {
			return strings.TrimSpace(body)
		}
		if graph, ok := node["@graph"]; ok {
			return findArticleBody(graph)
		}
	case []any:
		for _, item := range node {
			if body := findArticleBody(item); body != "" {
				return body
			}
		}
	}
	return ""
}

// ExtractFrontPage lists the national stories on the /india front page. Cards
// linking outside the national section are dropped; a page with none left fails.
func (t *TimesOfIndia) ExtractFrontPage(doc []byte) (*models.HeadlineIndex, error) {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, t.fail(PageFrontPage, fmt.Sprintf("parsing HTML: %v", err))
	}

	cards := page.Find(toiFrontPageCard)
	if cards.Length() == 0 {
		return nil, t.fail(PageFrontPage, "no story cards")
	}

	section := t.base + toiNationalSection
	idx := models.NewOrderedMap[string]()
	cards.Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		link := t.absolute(strings.TrimSpace(href))
		headline := strings.TrimSpace(card.Find(toiFrontPageTitle).First().Text())
		if headline == "" || !strings.HasPrefix(link, section) {
			return
		}
		idx.Set(headline, link)
	})
	if idx.Len() == 0 {
		return nil, t.fail(PageFrontPage, fmt.Sprintf("none of %d story cards link into %s", cards.Length(), section))
	}
	return idx, nil
}

func (t *TimesOfIndia) absolute(href string) string {
	base, err := url.Parse(t.base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (t *TimesOfIndia) fail(pageType, reason string) error {
	return &ExtractionError{Source: t.Name(), PageType: pageType, Reason: reason}
}
