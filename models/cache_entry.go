package models

import "time"

// CacheEntry is one cached document. Exactly one entry exists per normalized URL.
type CacheEntry struct {
	URL       string
	IsArticle bool
	FetchedAt time.Time
	Body      []byte
}
