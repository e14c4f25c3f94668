package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// staticHandler serves the build output. It is the origin the worker talks
// to when no upstream is configured. Paths are resolved under the deployment
// base path, and misses get the prebuilt 404 page.
func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if s.tryStatic(w, r) {
			return
		}
		s.serveNotFound(w, r)
	})
}

func (s *Server) tryStatic(w http.ResponseWriter, r *http.Request) bool {
	clean := sanitizeRequestPath(r.URL.Path)
	if strings.HasSuffix(r.URL.Path, "/") && clean != "/" {
		clean += "/"
	}
	rel, ok := strings.CutPrefix(clean, s.basePath)
	if !ok {
		if clean+"/" != s.basePath {
			return false
		}
		rel = ""
	}
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}

	target := filepath.Join(s.cfg.OutputDir, filepath.FromSlash(rel))
	if !isWithin(s.cfg.OutputDir, target) {
		return false
	}
	info, err := os.Stat(target)
	if err != nil {
		return false
	}
	if info.IsDir() {
		target = filepath.Join(target, "index.html")
		if info, err = os.Stat(target); err != nil || info.IsDir() {
			return false
		}
	}

	f, err := os.Open(target)
	if err != nil {
		return false
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}

func (s *Server) serveNotFound(w http.ResponseWriter, r *http.Request) {
	page, err := os.ReadFile(filepath.Join(s.cfg.OutputDir, "404.html"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(page)
	}
}

func isWithin(base, target string) bool {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	return true
}

func sanitizeRequestPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	clean := path.Clean(p)
	if clean == "." {
		return "/"
	}
	return clean
}
