package assetcache

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storages(t *testing.T) map[string]func(t *testing.T) Storage {
	t.Helper()
	return map[string]func(t *testing.T) Storage{
		"memory": func(t *testing.T) Storage { return NewMemoryStorage() },
		"sqlite": func(t *testing.T) Storage {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache", "assets.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func testEntry(url, body string) *Entry {
	return &Entry{
		URL:        url,
		Status:     http.StatusOK,
		StatusText: "200 OK",
		Header:     http.Header{"Content-Type": {"text/plain"}, "X-Origin": {"test"}},
		Body:       []byte(body),
		StoredAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestStorageNamespaces(t *testing.T) {
	for name, open := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)

			_, err := s.Open(ctx, "v1")
			require.NoError(t, err)
			_, err = s.Open(ctx, "v2")
			require.NoError(t, err)
			_, err = s.Open(ctx, "v1")
			require.NoError(t, err)

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v1", "v2"}, keys)

			ok, err := s.Has(ctx, "v2")
			require.NoError(t, err)
			assert.True(t, ok)

			deleted, err := s.Delete(ctx, "v1")
			require.NoError(t, err)
			assert.True(t, deleted)
			deleted, err = s.Delete(ctx, "v1")
			require.NoError(t, err)
			assert.False(t, deleted)

			keys, err = s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"v2"}, keys)
		})
	}
}

func TestCacheEntries(t *testing.T) {
	for name, open := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			c, err := s.Open(ctx, "v1")
			require.NoError(t, err)
			assert.Equal(t, "v1", c.Name())

			_, ok, err := c.Match(ctx, "https://landing.example/")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.PutAll(ctx, []*Entry{
				testEntry("https://landing.example/", "home"),
				testEntry("https://landing.example/css/styles.css", "body{}"),
			}))
			require.NoError(t, c.Put(ctx, testEntry("https://landing.example/", "home v2")))

			got, ok, err := c.Match(ctx, "https://landing.example/")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "home v2", string(got.Body))
			assert.Equal(t, http.StatusOK, got.Status)
			assert.Equal(t, "200 OK", got.StatusText)
			assert.Equal(t, "test", got.Header.Get("X-Origin"))
			assert.True(t, got.StoredAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))

			got.Header.Set("X-Origin", "mutated")
			again, _, err := c.Match(ctx, "https://landing.example/")
			require.NoError(t, err)
			assert.Equal(t, "test", again.Header.Get("X-Origin"))

			keys, err := c.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"https://landing.example/", "https://landing.example/css/styles.css"}, keys)

			deleted, err := c.Delete(ctx, "https://landing.example/css/styles.css")
			require.NoError(t, err)
			assert.True(t, deleted)

			require.NoError(t, func() error { _, err := s.Delete(ctx, "v1"); return err }())
			c2, err := s.Open(ctx, "v1")
			require.NoError(t, err)
			keys, err = c2.Keys(ctx)
			require.NoError(t, err)
			assert.Empty(t, keys, "deleting a cache drops its entries")
		})
	}
}

func TestSQLiteStoragePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "assets.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	c, err := s.Open(ctx, "landing-v2")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, testEntry("https://landing.example/js/script.js", "console.log(1)")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	c, err = s.Open(ctx, "landing-v2")
	require.NoError(t, err)
	got, ok, err := c.Match(ctx, "https://landing.example/js/script.js")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "console.log(1)", string(got.Body))
}

func TestEvictExcept(t *testing.T) {
	for name, open := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			for _, cache := range []string{"7oh-landing-page-v1", "7oh-landing-page-v2", "other"} {
				_, err := s.Open(ctx, cache)
				require.NoError(t, err)
			}

			evicted, err := EvictExcept(ctx, s, "7oh-landing-page-v2")
			require.NoError(t, err)
			assert.Equal(t, []string{"7oh-landing-page-v1", "other"}, evicted)

			keys, err := s.Keys(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"7oh-landing-page-v2"}, keys)

			evicted, err = EvictExcept(ctx, s, "7oh-landing-page-v2")
			require.NoError(t, err)
			assert.Empty(t, evicted)
		})
	}
}
