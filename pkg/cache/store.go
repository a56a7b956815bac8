package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dtnitsch/news-digest/pkg/artifact_manager"
	"github.com/dtnitsch/news-digest/pkg/db"
)

// IndexRecord is the fetch metadata kept per URL. On disk it is
// {"article": bool, "time": epoch-seconds} inside cache.json.
type IndexRecord struct {
	Article bool    `json:"article"`
	Time    float64 `json:"time"`
}

// FetchedAt converts the epoch-seconds timestamp.
func (r IndexRecord) FetchedAt() time.Time {
	sec, frac := math.Modf(r.Time)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Store persists the whole index at once: Load returns everything, Save replaces everything.
type Store interface {
	// Init creates an empty store when none exists. It never touches an existing one.
	Init() (created bool, err error)
	Load() (map[string]IndexRecord, error)
	Save(map[string]IndexRecord) error
	Close() error
}

// FileStore keeps the index in a single JSON file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Init() (bool, error) {
	_, err := os.Stat(s.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: stat %s: %v", ErrCacheUnavailable, s.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return false, fmt.Errorf("creating cache dir: %w", err)
	}
	if err := artifact_manager.WriteFileAtomic(s.path, []byte("{}"), 0600); err != nil {
		return false, fmt.Errorf("initializing cache index: %w", err)
	}
	return true, nil
}

func (s *FileStore) Load() (map[string]IndexRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCacheUnavailable, s.path, err)
	}
	records := make(map[string]IndexRecord)
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrCacheUnavailable, s.path, err)
	}
	return records, nil
}

func (s *FileStore) Save(records map[string]IndexRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	if err := artifact_manager.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// SQLiteStore keeps the index in a sqlite table.
type SQLiteStore struct {
	path string
	db   *db.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init() (bool, error) {
	exists, err := db.Exists(s.path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if exists {
		database, err := db.Open(s.path)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		s.db = database
		return false, nil
	}
	database, err := db.Create(s.path)
	if err != nil {
		return false, fmt.Errorf("initializing cache database: %w", err)
	}
	s.db = database
	return true, nil
}

func (s *SQLiteStore) Load() (map[string]IndexRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: database %s not initialized", ErrCacheUnavailable, s.path)
	}
	entries, err := s.db.LoadEntries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	records := make(map[string]IndexRecord, len(entries))
	for _, e := range entries {
		records[e.URL] = IndexRecord{Article: e.Article, Time: e.FetchedAt}
	}
	return records, nil
}

func (s *SQLiteStore) Save(records map[string]IndexRecord) error {
	if s.db == nil {
		return fmt.Errorf("%w: database %s not initialized", ErrCacheUnavailable, s.path)
	}
	entries := make([]db.Entry, 0, len(records))
	for u, r := range records {
		entries = append(entries, db.Entry{URL: u, Article: r.Article, FetchedAt: r.Time})
	}
	return s.db.ReplaceEntries(entries)
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
