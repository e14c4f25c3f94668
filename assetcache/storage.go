package assetcache

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCacheNotFound is returned when a named cache does not exist.
	ErrCacheNotFound = errors.New("cache not found")
	// ErrBulkAdd marks a failed all-or-nothing precache.
	ErrBulkAdd = errors.New("bulk add failed")
)

// Storage holds named caches for one origin.
type Storage interface {
	// Open returns the named cache, creating it when missing.
	Open(ctx context.Context, name string) (Cache, error)
	Has(ctx context.Context, name string) (bool, error)
	// Keys lists cache names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes the named cache and all of its entries.
	Delete(ctx context.Context, name string) (bool, error)
	Close() error
}

// Cache is a single named set of response snapshots.
type Cache interface {
	Name() string
	Match(ctx context.Context, url string) (*Entry, bool, error)
	// Put stores e under e.URL, replacing any previous entry.
	Put(ctx context.Context, e *Entry) error
	// PutAll stores every entry or none of them.
	PutAll(ctx context.Context, entries []*Entry) error
	// Keys lists entry URLs in insertion order.
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, url string) (bool, error)
}

// OpenExisting returns the named cache without creating it. It fails with
// ErrCacheNotFound when storage has no such cache.
func OpenExisting(ctx context.Context, storage Storage, name string) (Cache, error) {
	ok, err := storage.Has(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheNotFound, name)
	}
	return storage.Open(ctx, name)
}

// EvictExcept deletes every cache in storage except keep and returns the
// names it removed. It stops at the first failed delete.
func EvictExcept(ctx context.Context, storage Storage, keep string) ([]string, error) {
	names, err := storage.Keys(ctx)
	if err != nil {
		return nil, err
	}
	var evicted []string
	for _, name := range names {
		if name == keep {
			continue
		}
		if _, err := storage.Delete(ctx, name); err != nil {
			return evicted, fmt.Errorf("evict cache %s: %w", name, err)
		}
		evicted = append(evicted, name)
	}
	return evicted, nil
}
