package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"time"

	"github.com/7oh/landing-go/assetcache"
	"github.com/7oh/landing-go/config"
	"github.com/7oh/landing-go/site"
)

// Server fronts the landing page with the asset cache worker.
type Server struct {
	cfg          *config.Config
	svc          *site.Service
	storage      assetcache.Storage
	network      http.RoundTripper
	reg          *assetcache.Registration
	proxy        *httputil.ReverseProxy
	logger       *slog.Logger
	mux          *http.ServeMux
	serverHeader string
	basePath     string
}

// New constructs a server instance. Requests for the public origin reach the
// upstream when one is configured and the build output otherwise.
func New(cfg *config.Config, svc *site.Service, storage assetcache.Storage, logger *slog.Logger, serverHeader string) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	srv := &Server{
		cfg:          cfg,
		svc:          svc,
		storage:      storage,
		logger:       logger,
		mux:          http.NewServeMux(),
		serverHeader: strings.TrimSpace(serverHeader),
		basePath:     assetcache.BasePath(cfg.Cache.ScriptPath),
	}

	origin := cfg.OriginURL()
	if upstream := cfg.UpstreamURL(); upstream != nil {
		srv.network = &assetcache.UpstreamTransport{Origin: origin, Upstream: upstream}
	} else {
		srv.network = &assetcache.LocalTransport{Origin: origin, Handler: srv.staticHandler(), Fallback: http.DefaultTransport}
	}
	srv.reg = assetcache.NewRegistration(srv.network, logger)
	srv.proxy = srv.newProxy()
	srv.routes()
	return srv
}

// Handler returns the routed handler wrapped in the server middleware.
func (s *Server) Handler() http.Handler {
	return s.withServerHeader(s.logRequests(s.mux))
}

// Registration exposes the worker registration the proxy routes through.
func (s *Server) Registration() *assetcache.Registration {
	return s.reg
}

// Activate installs and activates a fresh worker for the configured cache.
func (s *Server) Activate(ctx context.Context) error {
	w, err := assetcache.NewWorker(assetcache.Config{
		CacheName:  s.cfg.Cache.Name,
		Origin:     s.cfg.Origin,
		ScriptPath: s.cfg.Cache.ScriptPath,
		MaxAge:     s.cfg.Cache.MaxAge(),
	}, s.storage, s.network, assetcache.WithLogger(s.logger))
	if err != nil {
		return err
	}
	return s.reg.Register(ctx, w)
}

// Reload drops the cached copies of the previous build and activates a new
// worker. It is the rebuild hook in live mode.
func (s *Server) Reload(ctx context.Context, buildErr error) {
	if buildErr != nil {
		return
	}
	if _, err := s.storage.Delete(ctx, s.cfg.Cache.Name); err != nil {
		s.logger.Warn("drop cache", "cache", s.cfg.Cache.Name, "error", err)
	}
	if err := s.Activate(ctx); err != nil {
		s.logger.Error("reactivate worker", "error", err)
	}
}

// Start launches the HTTP server and attaches graceful shutdown behaviour.
func (s *Server) Start(ctx context.Context) error {
	if err := s.svc.BuildStatic(ctx); err != nil {
		s.logger.Warn("static build", "error", err)
	}
	if err := s.Activate(ctx); err != nil {
		return fmt.Errorf("activate worker: %w", err)
	}

	if s.cfg.Live {
		watcher, err := site.NewWatcher(s.svc, s.logger, []string{s.cfg.ContentDir, s.cfg.TemplateDir}, site.WithBuildHook(s.Reload))
		if err != nil {
			return fmt.Errorf("watch sources: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	listener, err := s.listen(s.cfg.Listen)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxShutdown)
		close(shutdownDone)
	}()

	s.logger.Info("listening", "addr", listener.Addr().String(), "origin", s.cfg.Origin, "tls", s.cfg.EnableTLS)

	var serveErr error
	if s.cfg.EnableTLS {
		serveErr = server.ServeTLS(listener, s.cfg.TLSCert, s.cfg.TLSKey)
	} else {
		serveErr = server.Serve(listener)
	}

	if errors.Is(serveErr, http.ErrServerClosed) {
		<-shutdownDone
		return nil
	}
	return serveErr
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/cache", s.handleCache)
	s.mux.HandleFunc("/", s.handleProxy)
}

// newProxy points every request at the public origin and sends it through
// the registration, so the active worker decides between cache and network.
func (s *Server) newProxy() *httputil.ReverseProxy {
	origin := s.cfg.OriginURL()
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(origin)
			pr.Out.Host = origin.Host
			pr.SetXForwarded()
		},
		Transport: s.reg,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Error("proxy", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
}

func (s *Server) withServerHeader(next http.Handler) http.Handler {
	if s.serverHeader == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverHeader)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		level := slog.LevelInfo
		if rw.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(r.Context(), level, "http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"bytes", rw.written,
			"remote", s.clientRemoteAddr(r),
			"duration", time.Since(start))
	})
}

func (s *Server) clientRemoteAddr(r *http.Request) string {
	if addr, _ := s.cfg.RemoteAddrFromRequest(r); addr.IsValid() {
		return addr.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

type responseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(p)
	rw.written += int64(n)
	return n, err
}
