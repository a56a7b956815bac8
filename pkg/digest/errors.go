package digest

import (
	"errors"

	"github.com/dtnitsch/news-digest/pkg/cache"
	"github.com/dtnitsch/news-digest/pkg/extractors"
	"github.com/dtnitsch/news-digest/pkg/fetcher"
	"github.com/dtnitsch/news-digest/pkg/mlclient"
)

// ErrNoLocationDetected means the query named no known region.
var ErrNoLocationDetected = errors.New("no location detected in query")

// Failure kinds shown to the user alongside the error message.
const (
	KindCacheUnavailable   = "CacheUnavailable"
	KindFetchFailed        = "FetchFailed"
	KindExtractionFailed   = "ExtractionFailed"
	KindNoLocationDetected = "NoLocationDetected"
	KindSummarizeFailed    = "SummarizeFailed"
	KindClassifyFailed     = "ClassifyFailed"
	KindInternal           = "Internal"
)

// ErrorKind classifies a pipeline error. Unknown errors are Internal.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, cache.ErrCacheUnavailable):
		return KindCacheUnavailable
	case errors.Is(err, fetcher.ErrFetchFailed):
		return KindFetchFailed
	case errors.Is(err, extractors.ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrNoLocationDetected):
		return KindNoLocationDetected
	case errors.Is(err, mlclient.ErrSummarizeFailed):
		return KindSummarizeFailed
	case errors.Is(err, mlclient.ErrClassifyFailed):
		return KindClassifyFailed
	default:
		return KindInternal
	}
}
