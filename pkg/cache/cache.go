// Package cache provides a persistent content-hash cache so unchanged local
// files are not re-read when comparing them with Dropbox.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

type fileKey struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time"` // UnixNano
}

type entry struct {
	Key         fileKey `json:"key"`
	ContentHash string  `json:"content_hash"`
}

// HashCache caches Dropbox content hashes keyed by file path and validated by size+mtime.
type HashCache struct {
	path    string
	mu      sync.RWMutex
	entries map[string]entry // key = absolute file path
	dirty   bool
	logger  zerolog.Logger
}

// DefaultPath returns where the hash cache lives inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "hashes.json")
}

// Load reads the cache from path. Returns an empty cache on any error. An
// empty path gives a cache that is never written to disk.
func Load(path string, logger zerolog.Logger) *HashCache {
	hc := &HashCache{
		path:    path,
		entries: make(map[string]entry),
		logger:  logger,
	}
	if path == "" {
		return hc
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("reading hash cache file")
		}
		return hc
	}

	if err := json.Unmarshal(data, &hc.entries); err != nil {
		logger.Warn().Err(err).Msg("parsing hash cache file")
		hc.entries = make(map[string]entry)
	}

	logger.Debug().Int("entries", len(hc.entries)).Str("path", path).Msg("hash cache loaded")
	return hc
}

// Len returns the number of entries in the cache.
func (hc *HashCache) Len() int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.entries)
}

// Lookup returns the cached content hash if the file's size and mtime match
// the cached entry.
func (hc *HashCache) Lookup(filePath string) (string, bool) {
	hc.mu.RLock()
	e, ok := hc.entries[filePath]
	hc.mu.RUnlock()
	if !ok {
		return "", false
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return "", false
	}

	if info.Size() != e.Key.Size || info.ModTime().UnixNano() != e.Key.ModTime {
		return "", false
	}

	return e.ContentHash, true
}

// Store adds or updates the cache entry for the given file. Safe for
// concurrent use by hashing workers.
func (hc *HashCache) Store(filePath, contentHash string) {
	info, err := os.Stat(filePath)
	if err != nil {
		return
	}

	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.entries[filePath] = entry{
		Key: fileKey{
			Size:    info.Size(),
			ModTime: info.ModTime().UnixNano(),
		},
		ContentHash: contentHash,
	}
	hc.dirty = true
}

// Hash returns the content hash of filePath, computing it with compute and
// storing the result on a miss.
func (hc *HashCache) Hash(filePath string, compute func(string) (string, error)) (string, error) {
	if h, ok := hc.Lookup(filePath); ok {
		return h, nil
	}

	h, err := compute(filePath)
	if err != nil {
		return "", err
	}
	hc.Store(filePath, h)
	return h, nil
}

// Save writes the cache to disk if it has been modified.
func (hc *HashCache) Save() error {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	if !hc.dirty || hc.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(hc.path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(hc.entries)
	if err != nil {
		return err
	}

	if err := os.WriteFile(hc.path, data, 0o644); err != nil {
		return err
	}
	hc.dirty = false
	return nil
}
