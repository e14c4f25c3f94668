package assetcache

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

// Registration routes requests through the current active worker. A newly
// registered worker is installed and activated at once and takes over from
// its predecessor without waiting for in-flight requests to drain.
type Registration struct {
	mu      sync.RWMutex
	active  *Worker
	network http.RoundTripper
	logger  *slog.Logger
}

// NewRegistration returns a registration that sends requests to network
// until a worker is active.
func NewRegistration(network http.RoundTripper, logger *slog.Logger) *Registration {
	if network == nil {
		network = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registration{network: network, logger: logger}
}

// Register installs and activates w, then makes it the active worker.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	if err := w.Install(ctx); err != nil {
		return err
	}
	if err := w.Activate(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.active
	r.active = w
	r.mu.Unlock()

	if prev != nil && prev != w {
		prev.markRedundant()
		r.logger.Info("worker superseded", "previous", prev.Name(), "current", w.Name())
	}
	r.logger.Info("worker active", "cache", w.Name(), "base", w.BasePath())
	return nil
}

// Active returns the controlling worker, or nil.
func (r *Registration) Active() *Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registration) RoundTrip(req *http.Request) (*http.Response, error) {
	if w := r.Active(); w != nil {
		return w.RoundTrip(req)
	}
	return r.network.RoundTrip(req)
}
