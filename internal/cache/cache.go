// Package cache stores parsed document elements keyed by content hash, so
// re-classifying an unchanged file skips parsing.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/contraudit/contraudit/internal/models"
)

// ContentKey returns a stable cache key for the given file contents.
// Identical bytes always yield the same key regardless of file name.
func ContentKey(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// ArtifactCache is a directory of parsed-element snapshots keyed by content
// hash. An empty dir disables caching.
type ArtifactCache struct {
	dir string
}

// New creates an artifact cache rooted at dir. The directory is created on
// first Put.
func New(dir string) *ArtifactCache {
	return &ArtifactCache{dir: dir}
}

// Get returns the cached elements for key, or (nil, false) on a miss.
// A corrupt entry is treated as a miss and removed.
func (c *ArtifactCache) Get(key string) ([]models.Element, bool) {
	if c.dir == "" {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	var elements []models.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return elements, true
}

// Put stores elements under key. Write errors are returned but safe to
// ignore: the cache is an optimization.
func (c *ArtifactCache) Put(key string, elements []models.Element) error {
	if c.dir == "" {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(elements)
	if err != nil {
		return fmt.Errorf("marshal elements: %w", err)
	}
	tmp := c.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return os.Rename(tmp, c.path(key))
}

// GetOrParse returns cached elements for content, calling parse on a miss
// and storing the result.
func (c *ArtifactCache) GetOrParse(content []byte, parse func([]byte) ([]models.Element, error)) ([]models.Element, error) {
	key := ContentKey(content)
	if elements, ok := c.Get(key); ok {
		return elements, nil
	}
	elements, err := parse(content)
	if err != nil {
		return nil, err
	}
	_ = c.Put(key, elements)
	return elements, nil
}

func (c *ArtifactCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}
