package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/7oh/landing-go/config"
	"github.com/7oh/landing-go/fsutil"
	"github.com/7oh/landing-go/renderer"
	"github.com/7oh/landing-go/templatex"
)

// Service renders the landing page and publishes it to the output directory.
type Service struct {
	cfg       *config.Config
	templates *templatex.Engine
	renderer  *renderer.Renderer
	minifier  *renderer.Minifier
	logger    *slog.Logger
	status    *statusCache
	now       func() time.Time

	buildMu sync.Mutex
}

// NewService constructs a Service instance.
func NewService(cfg *config.Config, templates *templatex.Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:       cfg,
		templates: templates,
		renderer:  renderer.New(),
		minifier:  renderer.NewMinifier(),
		logger:    logger,
		status:    newStatusCache(),
		now:       time.Now,
	}
}

// Status returns the outcome of the last build and how many builds ran.
func (s *Service) Status() (BuildStatus, int) {
	return s.status.Snapshot()
}

// OutputDir returns the directory builds are published to.
func (s *Service) OutputDir() string {
	return s.cfg.OutputDir
}

// BuildStatic renders the landing page into a staging directory and swaps it
// into place. A failed build leaves the previous output untouched.
func (s *Service) BuildStatic(ctx context.Context) error {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	start := s.now()
	status := BuildStatus{BuiltAt: start.UTC()}
	err := s.build(ctx, &status)
	status.Duration = s.now().Sub(start)
	if err != nil {
		status.Error = err.Error()
	}
	s.status.Update(status)
	if err != nil {
		return err
	}
	s.logger.Info("static build", "output", s.cfg.OutputDir, "slides", status.Slides, "files", status.Files, "duration", status.Duration)
	return nil
}

func (s *Service) build(ctx context.Context, status *BuildStatus) error {
	finalDir := s.cfg.OutputDir
	if err := checkOutputDir(finalDir, s.cfg.ContentDir, s.cfg.TemplateDir); err != nil {
		return err
	}
	parent := filepath.Dir(finalDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("ensure output parent: %w", err)
	}

	tempDir, err := os.MkdirTemp(parent, ".__build-")
	if err != nil {
		return fmt.Errorf("create temp output dir: %w", err)
	}
	cleanTemp := true
	defer func() {
		if cleanTemp {
			_ = os.RemoveAll(tempDir)
		}
	}()

	home, slides, err := s.renderHome(ctx)
	if err != nil {
		return err
	}
	if err := fsutil.WriteFile(filepath.Join(tempDir, "index.html"), home); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	status.Slides = slides
	status.Files++

	notFound, err := s.RenderNotFound(ctx, "")
	if err != nil {
		return err
	}
	if err := fsutil.WriteFile(filepath.Join(tempDir, "404.html"), notFound); err != nil {
		return fmt.Errorf("write 404: %w", err)
	}
	status.Files++

	if s.templates.StaticDir != "" {
		err := fsutil.CopyTree(s.templates.StaticDir, tempDir, func(rel string, data []byte) ([]byte, error) {
			status.Files++
			out, _, err := s.minifier.File(rel, data)
			return out, err
		})
		if err != nil {
			return fmt.Errorf("copy theme assets: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fsutil.SwapDir(tempDir, finalDir); err != nil {
		return err
	}
	cleanTemp = false
	return nil
}
