package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

-- One row per normalized URL. Bodies live in the document mirror, not here.
CREATE TABLE IF NOT EXISTS cache_entries (
    url TEXT PRIMARY KEY,
    article BOOLEAN NOT NULL DEFAULT 0,
    fetched_at REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_article ON cache_entries(article);
`
