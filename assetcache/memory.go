package assetcache

import (
	"context"
	"slices"
	"sync"
)

// MemoryStorage keeps caches in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	caches map[string]*memoryCache
	order  []string
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: make(map[string]*memoryCache)}
}

func (s *MemoryStorage) Open(ctx context.Context, name string) (Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	c := &memoryCache{name: name, entries: make(map[string]*Entry)}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

func (s *MemoryStorage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caches[name]
	return ok, nil
}

func (s *MemoryStorage) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

type memoryCache struct {
	name    string
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

func (c *memoryCache) Name() string {
	return c.name
}

func (c *memoryCache) Match(ctx context.Context, url string) (*Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[url]
	if !ok {
		return nil, false, nil
	}
	return e.clone(), true, nil
}

func (c *memoryCache) Put(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.putLocked(e)
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) PutAll(ctx context.Context, entries []*Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	for _, e := range entries {
		c.putLocked(e)
	}
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) putLocked(e *Entry) {
	if _, ok := c.entries[e.URL]; !ok {
		c.order = append(c.order, e.URL)
	}
	c.entries[e.URL] = e.clone()
}

func (c *memoryCache) Keys(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order), nil
}

func (c *memoryCache) Delete(ctx context.Context, url string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; !ok {
		return false, nil
	}
	delete(c.entries, url)
	c.order = slices.DeleteFunc(c.order, func(u string) bool { return u == url })
	return true, nil
}
