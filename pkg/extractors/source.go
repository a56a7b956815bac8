// Package extractors turns fetched pages into headline indices and article text.
// Each news site is a PageSource; the pipeline only sees the interface.
package extractors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dtnitsch/news-digest/models"
)

// Page types reported by ExtractionError.
const (
	PageListing   = "listing"
	PageArticle   = "article"
	PageFrontPage = "frontpage"
)

// ErrExtractionFailed matches every ExtractionError.
var ErrExtractionFailed = errors.New("extraction failed")

// ExtractionError means the page did not match the structure the source expects.
type ExtractionError struct {
	Source   string
	PageType string
	Reason   string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s %s page: %s", e.Source, e.PageType, e.Reason)
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }

// PageSource captures the markup contract of one news site.
type PageSource interface {
	Name() string
	BaseURL() string
	// ListingPath is the site-relative path of a region's listing page.
	ListingPath(location string) string
	FrontPagePath() string
	ExtractListing(doc []byte) (top, all *models.HeadlineIndex, err error)
	ExtractArticle(doc []byte) (string, error)
	ExtractFrontPage(doc []byte) (*models.HeadlineIndex, error)
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]PageSource
}

func NewRegistry() *Registry {
	return &Registry{sources: map[string]PageSource{}}
}

// DefaultRegistry holds every built-in source. A non-empty baseURL overrides the
// sources' public origins, for mirrors and tests.
func DefaultRegistry(baseURL string) *Registry {
	r := NewRegistry()
	r.Register(NewTimesOfIndia(baseURL))
	return r
}

// Register adds or replaces a source.
func (r *Registry) Register(src PageSource) {
	if r.sources == nil {
		r.sources = map[string]PageSource{}
	}
	r.sources[src.Name()] = src
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (PageSource, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("page source %q is not registered (known: %v)", name, r.Names())
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decodeLenient unmarshals JSON that may carry raw control characters inside
// string literals. Those are replaced by spaces before decoding.
func decodeLenient(raw []byte, v any) error {
	clean := bytes.Map(func(r rune) rune {
		if r < 0x20 {
			return ' '
		}
		return r
	}, bytes.TrimSpace(raw))
	return json.Unmarshal(clean, v)
}
