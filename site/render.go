package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/7oh/landing-go/assetcache"
	"github.com/7oh/landing-go/carousel"
	"github.com/7oh/landing-go/templatex"
)

const heroDoc = "index.md"

type hero struct {
	Title       string
	Description string
	HTML        template.HTML
}

// RenderHome renders and minifies the landing page.
func (s *Service) RenderHome(ctx context.Context) ([]byte, error) {
	page, _, err := s.renderHome(ctx)
	return page, err
}

func (s *Service) renderHome(ctx context.Context) ([]byte, int, error) {
	h, err := s.loadHero()
	if err != nil {
		return nil, 0, err
	}
	slides, err := s.loadTestimonials(ctx)
	if err != nil {
		return nil, 0, err
	}

	data := s.pageData(h.Title)
	data.HeroHTML = h.HTML
	data.Carousel = s.carousel(slides)
	data.Meta = s.buildMeta(h.Description, s.siteName(), "website")

	page, err := s.render(data)
	if err != nil {
		return nil, 0, fmt.Errorf("render home: %w", err)
	}
	return page, len(slides), nil
}

// RenderNotFound renders the themed 404 page.
func (s *Service) RenderNotFound(ctx context.Context, requestedPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := s.pageData("404 - Not found")
	data.ContentTemplate = templatex.NotFoundContentTemplate

	requested := strings.TrimSpace(requestedPath)
	if requested != "" {
		requested = path.Clean("/" + strings.TrimPrefix(requested, "/"))
	}
	data.RequestedPath = requested
	description := "The page you are looking for could not be found."
	if requested != "" && requested != "/" {
		description = fmt.Sprintf("The requested path %s could not be found.", requested)
	}
	data.Meta = s.buildMeta(description, description, "website")

	page, err := s.render(data)
	if err != nil {
		return nil, fmt.Errorf("render 404: %w", err)
	}
	return page, nil
}

func (s *Service) render(data *templatex.PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.Render(&buf, data); err != nil {
		return nil, err
	}
	return s.minifier.HTML(buf.Bytes())
}

func (s *Service) pageData(title string) *templatex.PageData {
	return &templatex.PageData{
		Title:     title,
		PageTitle: s.pageTitle(title),
		SiteName:  s.siteName(),
		BaseURL:   assetcache.BasePath(s.cfg.Cache.ScriptPath),
		Live:      s.cfg.Live,
		Year:      s.now().Year(),
	}
}

// carousel lays the slides out as a desktop visitor first sees them. Only the
// initial window is server-rendered; the browser script takes over from there.
func (s *Service) carousel(slides []testimonial) *templatex.Carousel {
	ids := make([]string, len(slides))
	views := make([]templatex.Testimonial, len(slides))
	for i, t := range slides {
		ids[i] = t.ID
		views[i] = t.view()
	}

	breakpoint := s.cfg.Carousel.Breakpoint
	ctrl := carousel.New(ids, breakpoint+1, carousel.Options{
		Breakpoint:     breakpoint,
		Interval:       s.cfg.Carousel.Interval(),
		ResizeDebounce: s.cfg.Carousel.ResizeDebounce(),
		Logger:         s.logger,
	})
	defer ctrl.Stop()

	out := templatex.NewCarousel(ctrl.View(), views)
	if out != nil {
		out.Breakpoint = breakpoint
		out.IntervalMs = s.cfg.Carousel.IntervalMs
		out.ResizeDebounceMs = s.cfg.Carousel.ResizeDebounceMs
	}
	return out
}

// loadHero renders ContentDir/index.md when present.
func (s *Service) loadHero() (hero, error) {
	src, err := os.ReadFile(filepath.Join(s.cfg.ContentDir, heroDoc))
	if os.IsNotExist(err) {
		return hero{}, nil
	}
	if err != nil {
		return hero{}, fmt.Errorf("read hero: %w", err)
	}
	res, err := s.renderer.Render(src)
	if err != nil {
		return hero{}, fmt.Errorf("render hero: %w", err)
	}
	description := res.String("description")
	if description == "" {
		description = res.PlainText
	}
	return hero{
		Title:       res.String("title"),
		Description: description,
		HTML:        template.HTML(res.HTML),
	}, nil
}

func (s *Service) buildMeta(summary, fallback, ogType string) templatex.Meta {
	if ogType == "" {
		ogType = "website"
	}
	description := metaDescription(summary, fallback)
	if description == "" {
		description = s.siteName()
	}
	return templatex.Meta{
		Description:   description,
		OpenGraphType: ogType,
		OpenGraphSite: s.siteName(),
	}
}

func (s *Service) siteName() string {
	name := strings.TrimSpace(s.cfg.SiteName)
	if name == "" {
		return "Untitled"
	}
	return name
}

func (s *Service) pageTitle(raw string) string {
	title := strings.TrimSpace(raw)
	site := s.siteName()
	if title == "" {
		return site
	}
	return fmt.Sprintf("%s - %s", title, site)
}
