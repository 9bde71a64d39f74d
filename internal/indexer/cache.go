package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"

	"github.com/mvp-joe/structscan/internal/scanner"
)

// CatalogCache holds catalogs keyed by grammar and content hash, so a file
// whose content has not changed is not rescanned. Cached catalogs are shared
// and must not be modified.
type CatalogCache struct {
	cache otter.Cache[string, *scanner.Catalog]
}

// NewCatalogCache creates a cache holding up to capacity catalogs.
func NewCatalogCache(capacity int) (*CatalogCache, error) {
	c, err := otter.MustBuilder[string, *scanner.Catalog](capacity).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog cache: %w", err)
	}
	return &CatalogCache{cache: c}, nil
}

// ContentHash returns the hex SHA-256 of src.
func ContentHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

func cacheKey(grammarName, hash string) string {
	return grammarName + "\x00" + hash
}

// Get returns the catalog cached for the grammar and content hash.
func (c *CatalogCache) Get(grammarName, hash string) (*scanner.Catalog, bool) {
	return c.cache.Get(cacheKey(grammarName, hash))
}

// Set stores a catalog.
func (c *CatalogCache) Set(grammarName, hash string, cat *scanner.Catalog) {
	c.cache.Set(cacheKey(grammarName, hash), cat)
}

// Len returns the number of cached catalogs.
func (c *CatalogCache) Len() int {
	return c.cache.Size()
}

// Hits returns how many lookups were served from the cache.
func (c *CatalogCache) Hits() int64 {
	return c.cache.Stats().Hits()
}

// Close releases the cache's background resources.
func (c *CatalogCache) Close() {
	c.cache.Close()
}
