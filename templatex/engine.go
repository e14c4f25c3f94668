package templatex

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/7oh/landing-go/carousel"
)

const (
	HomeContentTemplate     = "content-home"
	NotFoundContentTemplate = "content-404"
	LayoutTemplate          = "layout"
)

// PageData represents the data model expected by the default layout.
type PageData struct {
	Title           string
	PageTitle       string
	SiteName        string
	HeroHTML        template.HTML
	ContentTemplate string
	RequestedPath   string
	BaseURL         string
	Live            bool
	Year            int
	Carousel        *Carousel
	Meta            Meta
}

// Meta holds SEO-oriented metadata for the rendered page.
type Meta struct {
	Description   string
	OpenGraphType string
	OpenGraphSite string
}

// Testimonial is one rendered carousel slide.
type Testimonial struct {
	ID      string
	Name    string
	Role    string
	Quote   template.HTML
	Visible bool
}

// Carousel is the server-rendered initial state of the testimonials carousel.
// The data attributes let the browser script pick up where the markup leaves off.
type Carousel struct {
	Slides           []Testimonial
	Dots             []carousel.Dot
	Prev             carousel.Control
	Next             carousel.Control
	PerView          int
	Breakpoint       int
	IntervalMs       int
	ResizeDebounceMs int
}

// NewCarousel merges a controller view with the slide contents, matched by ID.
func NewCarousel(view carousel.View, slides []Testimonial) *Carousel {
	if len(view.Slides) == 0 {
		return nil
	}
	byID := make(map[string]Testimonial, len(slides))
	for _, s := range slides {
		byID[s.ID] = s
	}
	out := &Carousel{
		Slides:  make([]Testimonial, 0, len(view.Slides)),
		Dots:    view.Dots,
		Prev:    view.Prev,
		Next:    view.Next,
		PerView: view.PerView,
	}
	for _, sv := range view.Slides {
		t := byID[sv.ID]
		t.ID = sv.ID
		t.Visible = sv.Visible
		out.Slides = append(out.Slides, t)
	}
	return out
}

// Engine is a thin wrapper around Go templates.
type Engine struct {
	templates *template.Template
	StaticDir string
}

// Load instantiates an engine using files from templateDir.
func Load(templateDir string) (*Engine, error) {
	if templateDir == "" {
		return nil, fmt.Errorf("template directory not configured")
	}

	engine := &Engine{}

	funcs := template.FuncMap{
		"safeHTML": func(v any) template.HTML {
			switch value := v.(type) {
			case template.HTML:
				return value
			case string:
				return template.HTML(value)
			default:
				return ""
			}
		},
		"baseHref": baseHref,
		"asset": func(base, rel string) string {
			return path.Join(baseHref(base), rel)
		},
	}

	files := make([]string, 0)
	mainFiles, err := filepath.Glob(filepath.Join(templateDir, "*.html"))
	if err != nil {
		return nil, fmt.Errorf("glob main templates: %w", err)
	}
	files = append(files, mainFiles...)

	partialsDir := filepath.Join(templateDir, "partials")
	if info, err := os.Stat(partialsDir); err == nil && info.IsDir() {
		partialFiles, err := filepath.Glob(filepath.Join(partialsDir, "*.html"))
		if err != nil {
			return nil, fmt.Errorf("glob partial templates: %w", err)
		}
		files = append(files, partialFiles...)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templateDir)
	}

	sort.Strings(files)

	tpl, err := template.New("root").Funcs(funcs).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	if tpl.Lookup(LayoutTemplate) == nil {
		return nil, fmt.Errorf("template %q is not defined", LayoutTemplate)
	}

	engine.templates = tpl

	assetsPath := filepath.Join(templateDir, "assets")
	if info, err := os.Stat(assetsPath); err == nil && info.IsDir() {
		engine.StaticDir = assetsPath
	}

	return engine, nil
}

// Render writes the rendered layout into the provided writer.
func (e *Engine) Render(w io.Writer, data *PageData) error {
	if e.templates == nil {
		return fmt.Errorf("template engine not initialized")
	}
	if data != nil && strings.TrimSpace(data.ContentTemplate) == "" {
		data.ContentTemplate = HomeContentTemplate
	}
	return e.templates.ExecuteTemplate(w, LayoutTemplate, data)
}

func baseHref(base string) string {
	base = strings.TrimSpace(base)
	if base == "" || base == "/" {
		return "/"
	}
	return "/" + strings.Trim(base, "/") + "/"
}
