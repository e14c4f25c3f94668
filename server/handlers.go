package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/7oh/landing-go/assetcache"
)

type cacheEntry struct {
	URL      string    `json:"url"`
	Status   int       `json:"status"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"storedAt"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if status, builds := s.svc.Status(); builds > 0 {
		payload["build"] = status
	}
	if active := s.reg.Active(); active != nil {
		payload["worker"] = map[string]string{"cache": active.Name(), "state": active.State().String()}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	active := s.reg.Active()
	if active == nil {
		writeError(w, http.StatusServiceUnavailable, "no active worker")
		return
	}
	entries, err := active.Entries(r.Context())
	if errors.Is(err, assetcache.ErrCacheNotFound) {
		entries, err = nil, nil
	}
	if err != nil {
		s.logger.Error("list cache", "cache", active.Name(), "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]cacheEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, cacheEntry{URL: e.URL, Status: e.Status, Size: e.Size(), StoredAt: e.StoredAt})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cache":   active.Name(),
		"state":   active.State().String(),
		"base":    active.BasePath(),
		"entries": items,
	})
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	s.proxy.ServeHTTP(w, r)
}
