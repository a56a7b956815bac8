package artifact_manager

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	DefaultMirrorDir = "html_files"
	documentExt      = ".html"
)

// Manager keeps the on-disk mirror of fetched documents: one file per normalized URL,
// named by a slug derived from the URL path so pages can be inspected by hand.
type Manager struct {
	baseDir    string
	baseHost   string
	baseOrigin string
}

// NewManager creates the mirror directory if needed. baseURL is the site origin;
// documents on that host get slugs without a host prefix.
func NewManager(baseDir, baseURL string) (*Manager, error) {
	if baseDir == "" {
		baseDir = DefaultMirrorDir
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create mirror directory: %w", err)
	}

	m := &Manager{baseDir: baseDir}
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		m.baseHost = strings.ToLower(u.Host)
		if u.Scheme != "" && u.Host != "" {
			m.baseOrigin = u.Scheme + "://" + u.Host
		}
	}
	return m, nil
}

// Dir returns the mirror directory.
func (m *Manager) Dir() string {
	return m.baseDir
}

var (
	invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	plainPath           = regexp.MustCompile(`^(/[a-zA-Z0-9.-]+)+$`)
)

const (
	rootSlug      = "_index"
	hashSeparator = "__"
	maxSlugPrefix = 180
)

// Slug derives the mirror file name (without extension) for a normalized URL.
// "https://site/india/delhi" becomes "india_delhi". A URL that is exactly the base
// origin followed by non-empty [a-zA-Z0-9.-] path segments maps to a plain slug that
// can be read back into the URL. Every other URL gets a readable prefix plus "__" and
// a hash of the full URL. Plain slugs never contain "__", so no two URLs share a file.
func (m *Manager) Slug(normalizedURL string) string {
	if m.baseOrigin != "" && strings.HasPrefix(normalizedURL, m.baseOrigin+"/") {
		path := normalizedURL[len(m.baseOrigin):]
		if path == "/" {
			return rootSlug
		}
		if plainPath.MatchString(path) {
			if slug := strings.ReplaceAll(path[1:], "/", "_"); len(slug) <= maxSlugPrefix {
				return slug
			}
		}
	}

	u, err := url.Parse(normalizedURL)
	if err != nil || u.Host == "" {
		return hashedSlug(invalidFilenameChar.ReplaceAllString(normalizedURL, "_"), normalizedURL)
	}
	prefix := strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_")
	if host := strings.ToLower(u.Host); host != m.baseHost {
		prefix = strings.ReplaceAll(host, ".", "_") + "_" + prefix
	}
	return hashedSlug(invalidFilenameChar.ReplaceAllString(prefix, "-"), normalizedURL)
}

func hashedSlug(prefix, fullURL string) string {
	prefix = strings.Trim(prefix, "_")
	if len(prefix) > maxSlugPrefix {
		prefix = prefix[:maxSlugPrefix]
	}
	prefix = strings.TrimRight(prefix, "_")
	return prefix + hashSeparator + shortHash(fullURL)
}

func shortHash(s string) string {
	hash := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", hash[:6])
}

// Path returns the mirror file path for a normalized URL.
func (m *Manager) Path(normalizedURL string) string {
	return filepath.Join(m.baseDir, m.Slug(normalizedURL)+documentExt)
}

// Read returns the mirrored document; found is false when no file exists.
func (m *Manager) Read(normalizedURL string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Clean(m.Path(normalizedURL)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading mirrored document: %w", err)
	}
	return data, true, nil
}

// Write stores the raw document. The file is replaced atomically so readers
// never see a partial document.
func (m *Manager) Write(normalizedURL string, data []byte) error {
	return WriteFileAtomic(m.Path(normalizedURL), data, 0600)
}

// Size sums the bytes of every mirrored document.
func (m *Manager) Size() (int64, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return 0, fmt.Errorf("error listing mirror directory: %w", err)
	}
	var total int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), documentExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return 0, fmt.Errorf("error statting %s: %w", e.Name(), err)
		}
		total += info.Size()
	}
	return total, nil
}

// WriteFileAtomic writes to a temp file in the same directory and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename %s: %w", path, err)
	}
	return nil
}
