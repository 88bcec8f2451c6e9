package elfaes

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DocumentCache is a bounded read-through cache in front of a
// DocumentStore, used to absorb repeated Get calls for hot objects
// within a process; GetOrCreate and Set always reach the inner store
// and refresh the cached entry. It does not participate in the
// compare-and-swap protocol — callers must still reload before Set.
type DocumentCache struct {
	inner DocumentStore
	cache *lru.Cache[string, ObjectDocument]
}

// NewDocumentCache wraps inner with an LRU of the given size.
func NewDocumentCache(inner DocumentStore, size int) (*DocumentCache, error) {
	c, err := lru.New[string, ObjectDocument](size)
	if err != nil {
		return nil, err
	}
	return &DocumentCache{inner: inner, cache: c}, nil
}

func cacheKey(objectName, objectID string) string { return objectName + "\x00" + objectID }

// Get returns the cached document if present, else delegates and caches.
func (c *DocumentCache) Get(ctx context.Context, objectName, objectID string) (ObjectDocument, error) {
	key := cacheKey(objectName, objectID)
	if doc, ok := c.cache.Get(key); ok {
		return doc, nil
	}
	doc, err := c.inner.Get(ctx, objectName, objectID)
	if err != nil {
		return ObjectDocument{}, err
	}
	c.cache.Add(key, doc)
	return doc, nil
}

// GetOrCreate delegates and refreshes the cache entry.
func (c *DocumentCache) GetOrCreate(ctx context.Context, objectName, objectID string) (ObjectDocument, error) {
	doc, err := c.inner.GetOrCreate(ctx, objectName, objectID)
	if err != nil {
		return ObjectDocument{}, err
	}
	c.cache.Add(cacheKey(objectName, objectID), doc)
	return doc, nil
}

// Set delegates to inner and refreshes (or evicts on failure) the cache entry.
func (c *DocumentCache) Set(ctx context.Context, doc ObjectDocument) (ObjectDocument, error) {
	saved, err := c.inner.Set(ctx, doc)
	key := cacheKey(doc.ObjectName, doc.ObjectID)
	if err != nil {
		c.cache.Remove(key)
		return ObjectDocument{}, err
	}
	c.cache.Add(key, saved)
	return saved, nil
}

var _ DocumentStore = (*DocumentCache)(nil)
