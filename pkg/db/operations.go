package db

import (
	"fmt"
)

// Entry is one cache index row. FetchedAt is epoch seconds, matching the JSON index.
type Entry struct {
	URL       string
	Article   bool
	FetchedAt float64
}

// LoadEntries reads the whole cache index.
func (db *DB) LoadEntries() ([]Entry, error) {
	rows, err := db.Query("SELECT url, article, fetched_at FROM cache_entries ORDER BY url")
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.URL, &e.Article, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cache entries: %w", err)
	}
	return entries, nil
}

// ReplaceEntries rewrites the whole index in a single transaction, so readers
// see either the old or the new index.
func (db *DB) ReplaceEntries(entries []Entry) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM cache_entries"); err != nil {
		return fmt.Errorf("failed to clear cache entries: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO cache_entries (url, article, fetched_at) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(e.URL, e.Article, e.FetchedAt); err != nil {
			return fmt.Errorf("failed to insert cache entry %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cache entries: %w", err)
	}
	return nil
}
