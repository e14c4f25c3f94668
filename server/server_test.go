package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7oh/landing-go/assetcache"
	"github.com/7oh/landing-go/config"
	"github.com/7oh/landing-go/site"
	"github.com/7oh/landing-go/templatex"
)

const immutable = "public, max-age=31536000, immutable"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T, overrides string) *config.Config {
	t.Helper()
	root := t.TempDir()
	contentDir := filepath.Join(root, "content")
	writeFile(t, filepath.Join(contentDir, "testimonials", "ana.md"), "---\nname: Ana\norder: 1\n---\nLoved it.\n")
	writeFile(t, filepath.Join(contentDir, "testimonials", "bruno.md"), "---\nname: Bruno\norder: 2\n---\nFast.\n")

	body := `{"origin": "https://landing.example", "siteName": "7oh"` + overrides + `}`
	path := filepath.Join(root, "config.json")
	writeFile(t, path, body)
	t.Setenv("LANDING_OUTPUT_DIR", filepath.Join(root, "dist"))
	t.Setenv("LANDING_CONTENT_DIR", contentDir)
	t.Setenv("LANDING_TEMPLATE_DIR", filepath.Join("..", "template"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()
	engine, err := templatex.Load(cfg.TemplateDir)
	require.NoError(t, err)
	svc := site.NewService(cfg, engine, quietLogger())
	require.NoError(t, svc.BuildStatic(context.Background()))

	srv := New(cfg, svc, assetcache.NewMemoryStorage(), quietLogger(), "landing/test")
	require.NoError(t, srv.Activate(context.Background()))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func fetch(t *testing.T, method, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServesHomeThroughWorker(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t, ""))

	resp, body := fetch(t, http.MethodGet, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, immutable, resp.Header.Get("Cache-Control"))
	assert.NotEmpty(t, resp.Header.Get("Expires"))
	assert.Equal(t, "landing/test", resp.Header.Get("Server"))
	assert.Contains(t, body, "testimonials-carousel")

	resp, body = fetch(t, http.MethodGet, ts.URL+"/css/styles.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, immutable, resp.Header.Get("Cache-Control"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
	assert.Contains(t, body, ".carousel-dot")
}

func TestMissServesThemedNotFoundUncached(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t, ""))

	resp, body := fetch(t, http.MethodGet, ts.URL+"/pricing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Expires"))
	assert.Contains(t, body, "could not be found")
}

func TestNonGetPassesThroughUncached(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t, ""))

	resp, _ := fetch(t, http.MethodPost, ts.URL+"/")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.NotEqual(t, immutable, resp.Header.Get("Cache-Control"))
}

func TestHealthAndCacheEndpoints(t *testing.T) {
	_, ts := newTestServer(t, testConfig(t, ""))
	fetch(t, http.MethodGet, ts.URL+"/js/script.js")

	resp, body := fetch(t, http.MethodGet, ts.URL+"/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var health struct {
		Status string            `json:"status"`
		Worker map[string]string `json:"worker"`
		Build  site.BuildStatus  `json:"build"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "activated", health.Worker["state"])
	assert.Equal(t, 2, health.Build.Slides)

	resp, body = fetch(t, http.MethodGet, ts.URL+"/api/cache")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Cache   string       `json:"cache"`
		State   string       `json:"state"`
		Entries []cacheEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &listing))
	assert.Equal(t, "7oh-landing-page-v2", listing.Cache)
	assert.Equal(t, "activated", listing.State)

	var urls []string
	for _, e := range listing.Entries {
		urls = append(urls, e.URL)
		assert.Positive(t, e.Size)
	}
	// The default theme ships no hero image, so install caches the other four.
	assert.ElementsMatch(t, []string{
		"https://landing.example/",
		"https://landing.example/index.html",
		"https://landing.example/css/styles.css",
		"https://landing.example/js/script.js",
	}, urls)

	resp, _ = fetch(t, http.MethodDelete, ts.URL+"/api/cache")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestReloadDropsStaleEntries(t *testing.T) {
	cfg := testConfig(t, "")
	srv, ts := newTestServer(t, cfg)
	first := srv.Registration().Active()

	_, before := fetch(t, http.MethodGet, ts.URL+"/")
	assert.Contains(t, before, "Loved it.")

	writeFile(t, filepath.Join(cfg.ContentDir, "testimonials", "ana.md"), "---\nname: Ana\norder: 1\n---\nStill loving it.\n")
	require.NoError(t, srv.svc.BuildStatic(context.Background()))

	_, cached := fetch(t, http.MethodGet, ts.URL+"/")
	assert.Contains(t, cached, "Loved it.", "served cache-first until reload")

	srv.Reload(context.Background(), nil)
	assert.Equal(t, assetcache.StateRedundant, first.State())

	_, after := fetch(t, http.MethodGet, ts.URL+"/")
	assert.Contains(t, after, "Still loving it.")
}

func TestUpstreamOrigin(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits[r.URL.Path]++
		mu.Unlock()
		if !strings.HasPrefix(r.URL.Path, "/site/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.Copy(w, bytes.NewBufferString("upstream:"+strings.TrimPrefix(r.URL.Path, "/site")))
	}))
	defer upstream.Close()

	_, ts := newTestServer(t, testConfig(t, `, "upstream": "`+upstream.URL+`/site/"`))

	for range 2 {
		resp, body := fetch(t, http.MethodGet, ts.URL+"/css/styles.css")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "upstream:/css/styles.css", body)
		assert.Equal(t, immutable, resp.Header.Get("Cache-Control"))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/site/css/styles.css"], "only the install fetch reaches the upstream")
}

func TestStaticHandlerUnderBasePath(t *testing.T) {
	cfg := testConfig(t, `, "cache": {"scriptPath": "/landing_page/sw.js"}`)
	srv, _ := newTestServer(t, cfg)
	h := srv.staticHandler()

	for _, target := range []string{"/landing_page/", "/landing_page", "/landing_page/index.html"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "testimonials-carousel", target)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/landing_page/../../etc/passwd", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
