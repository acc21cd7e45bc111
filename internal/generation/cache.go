package generation

import (
	"container/list"
	"context"
	"sync"
)

// Cache is an LRU cache of generated text keyed by prompt.
type Cache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value string
}

// NewCache creates a new cache with the given capacity.
func NewCache(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached text for key if present.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return "", false
}

// Set stores the text for key, evicting the oldest entry if at capacity.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedGenerator wraps a TextGenerator and reuses text for repeated prompts.
// Failures are not cached.
type CachedGenerator struct {
	next  TextGenerator
	cache *Cache
}

// NewCachedGenerator wraps next with an LRU of the given capacity. A capacity
// of zero or less returns next unchanged.
func NewCachedGenerator(next TextGenerator, capacity int) TextGenerator {
	if capacity <= 0 {
		return next
	}
	return &CachedGenerator{next: next, cache: NewCache(capacity)}
}

// Generate returns the cached text for prompt or asks the wrapped generator.
func (g *CachedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if text, ok := g.cache.Get(prompt); ok {
		return text, nil
	}
	text, err := g.next.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	g.cache.Set(prompt, text)
	return text, nil
}
