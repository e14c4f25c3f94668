package assetcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// State is a worker lifecycle phase.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrInvalidOrigin = errors.New("invalid origin")
	ErrNotInstalled  = errors.New("worker not installed")
)

// precacheConcurrency bounds the per-asset fallback after a failed bulk add.
const precacheConcurrency = 4

// Config describes one worker version.
type Config struct {
	// CacheName identifies this version's cache; activation deletes all others.
	CacheName string
	// Origin is the scheme://host[:port] the worker serves.
	Origin string
	// ScriptPath is the worker's own install path, used to derive the base path.
	ScriptPath string
	MaxAge     time.Duration
	// Assets overrides the install-time list derived from ScriptPath.
	Assets []string
}

// Worker is a cache-first proxy for same-origin GET requests. It implements
// http.RoundTripper; requests it does not handle go to the network untouched.
type Worker struct {
	name    string
	origin  *url.URL
	base    string
	assets  []string
	maxAge  time.Duration
	storage Storage
	network http.RoundTripper
	client  *http.Client
	now     func() time.Time
	logger  *slog.Logger

	mu    sync.RWMutex
	state State
}

// Option customizes a Worker.
type Option func(*Worker)

// WithClock overrides the time source used for Expires and StoredAt.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// NewWorker validates cfg and returns a worker in the parsed state.
func NewWorker(cfg Config, storage Storage, network http.RoundTripper, opts ...Option) (*Worker, error) {
	if storage == nil {
		return nil, errors.New("worker: storage required")
	}
	origin, err := url.Parse(strings.TrimSpace(cfg.Origin))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if (origin.Scheme != "http" && origin.Scheme != "https") || origin.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrigin, cfg.Origin)
	}
	if strings.TrimSpace(cfg.CacheName) == "" {
		return nil, errors.New("worker: cache name required")
	}
	if network == nil {
		network = http.DefaultTransport
	}
	scriptPath := cfg.ScriptPath
	if scriptPath == "" {
		scriptPath = DefaultScriptPath
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	w := &Worker{
		name:    cfg.CacheName,
		origin:  &url.URL{Scheme: origin.Scheme, Host: origin.Host},
		base:    BasePath(scriptPath),
		maxAge:  maxAge,
		storage: storage,
		network: network,
		now:     time.Now,
		logger:  slog.Default(),
	}
	w.assets = cfg.Assets
	if len(w.assets) == 0 {
		w.assets = StaticAssets(w.base)
	}
	for _, opt := range opts {
		opt(w)
	}
	w.client = &http.Client{Transport: network}
	return w, nil
}

// Name returns the cache name this worker owns.
func (w *Worker) Name() string { return w.name }

// BasePath returns the deployment root derived from the script path.
func (w *Worker) BasePath() string { return w.base }

// Assets returns the install-time asset paths.
func (w *Worker) Assets() []string { return append([]string(nil), w.assets...) }

// Origin returns the origin the worker serves.
func (w *Worker) Origin() string { return originOf(w.origin) }

// State reports the lifecycle phase.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()
	if prev != s {
		w.logger.Debug("worker state", "cache", w.name, "from", prev.String(), "to", s.String())
	}
}

// Install opens the cache and seeds it with the install-time assets. If the
// all-or-nothing bulk add fails, each asset is fetched on its own and
// failures are ignored, so one missing image never aborts installation.
func (w *Worker) Install(ctx context.Context) error {
	w.setState(StateInstalling)
	cache, err := w.storage.Open(ctx, w.name)
	if err != nil {
		w.setState(StateRedundant)
		return fmt.Errorf("install %s: %w", w.name, err)
	}
	if err := w.addAll(ctx, cache, w.assets); err != nil {
		w.logger.Info("cache addAll failed, caching individually", "cache", w.name, "error", err)
		w.addEach(ctx, cache, w.assets)
	}
	w.setState(StateInstalled)
	return nil
}

// Activate deletes every cache not owned by this worker and starts handling fetches.
func (w *Worker) Activate(ctx context.Context) error {
	if s := w.State(); s != StateInstalled && s != StateActivated {
		return fmt.Errorf("%w: %s is %s", ErrNotInstalled, w.name, s)
	}
	w.setState(StateActivating)
	evicted, err := EvictExcept(ctx, w.storage, w.name)
	for _, name := range evicted {
		w.logger.Info("evicted stale cache", "cache", name)
	}
	if err != nil {
		w.setState(StateInstalled)
		return fmt.Errorf("activate %s: %w", w.name, err)
	}
	w.setState(StateActivated)
	return nil
}

func (w *Worker) markRedundant() {
	w.setState(StateRedundant)
}

// RoundTrip serves same-origin GET requests cache-first once the worker is
// activated. Everything else passes straight through to the network.
func (w *Worker) RoundTrip(req *http.Request) (*http.Response, error) {
	if w.State() != StateActivated || req.Method != http.MethodGet || !w.sameOrigin(req.URL) {
		return w.network.RoundTrip(req)
	}

	ctx := req.Context()
	key := cacheKey(req.URL)
	cache, err := w.storage.Open(ctx, w.name)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", w.name, err)
	}

	entry, ok, err := cache.Match(ctx, key)
	if err != nil {
		w.logger.Warn("cache match", "url", key, "error", err)
	}
	if ok {
		resp := entry.Response(req)
		resp.Header = withLongLifetime(resp.Header, w.now(), w.maxAge)
		return resp, nil
	}

	resp, err := w.network.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.StatusCode != http.StatusOK || !w.isBasic(req, resp) {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if err := cache.Put(ctx, snapshot(key, resp, body, w.now())); err != nil {
		w.logger.Warn("cache put", "url", key, "error", err)
	}

	resp.Header = withLongLifetime(resp.Header, w.now(), w.maxAge)
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

// Entries returns a snapshot of everything in the worker's cache.
func (w *Worker) Entries(ctx context.Context) ([]*Entry, error) {
	cache, err := OpenExisting(ctx, w.storage, w.name)
	if err != nil {
		return nil, err
	}
	keys, err := cache.Keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		e, ok, err := cache.Match(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (w *Worker) addAll(ctx context.Context, cache Cache, paths []string) error {
	entries := make([]*Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			e, err := w.fetchEntry(gctx, p)
			if err != nil {
				return err
			}
			entries[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return cache.PutAll(ctx, entries)
}

func (w *Worker) addEach(ctx context.Context, cache Cache, paths []string) {
	var g errgroup.Group
	g.SetLimit(precacheConcurrency)
	for _, p := range paths {
		g.Go(func() error {
			e, err := w.fetchEntry(ctx, p)
			if err != nil {
				w.logger.Debug("precache skipped", "path", p, "error", err)
				return nil
			}
			if err := cache.Put(ctx, e); err != nil {
				w.logger.Debug("precache put", "path", p, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (w *Worker) fetchEntry(ctx context.Context, path string) (*Entry, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBulkAdd, path, err)
	}
	target := w.origin.ResolveReference(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBulkAdd, path, err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBulkAdd, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", ErrBulkAdd, path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBulkAdd, path, err)
	}
	return snapshot(cacheKey(target), resp, body, w.now()), nil
}

func (w *Worker) sameOrigin(u *url.URL) bool {
	return u != nil && originOf(u) == originOf(w.origin)
}

// isBasic reports whether resp is a readable same-origin response. A redirect
// that ended on another origin is not.
func (w *Worker) isBasic(req *http.Request, resp *http.Response) bool {
	final := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return w.sameOrigin(final)
}
