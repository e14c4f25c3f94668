package site

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/7oh/landing-go/templatex"
)

const testimonialsDir = "testimonials"

type testimonial struct {
	ID        string
	Source    string
	Name      string
	Role      string
	Order     int
	HTML      template.HTML
	PlainText string
}

func (t testimonial) view() templatex.Testimonial {
	return templatex.Testimonial{ID: t.ID, Name: t.Name, Role: t.Role, Quote: t.HTML}
}

// loadTestimonials renders every markdown file under ContentDir/testimonials,
// ordered by their `order` front matter and then by file name. A missing
// directory yields no slides.
func (s *Service) loadTestimonials(ctx context.Context) ([]testimonial, error) {
	dir := filepath.Join(s.cfg.ContentDir, testimonialsDir)
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("glob testimonials: %w", err)
	}
	sort.Strings(files)

	out := make([]testimonial, 0, len(files))
	seen := make(map[string]int, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read testimonial %s: %w", filepath.Base(file), err)
		}
		res, err := s.renderer.Render(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTestimonial, filepath.Base(file), err)
		}
		if strings.TrimSpace(res.PlainText) == "" {
			return nil, fmt.Errorf("%w: %s: empty quote", ErrInvalidTestimonial, filepath.Base(file))
		}

		name := res.String("name")
		if name == "" {
			name = deriveTitle(file)
		}
		id := "testimonial-" + slugify(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))
		if n := seen[id]; n > 0 {
			seen[id] = n + 1
			id += "-" + strconv.Itoa(n+1)
		} else {
			seen[id] = 1
		}

		out = append(out, testimonial{
			ID:        id,
			Source:    filepath.Base(file),
			Name:      name,
			Role:      res.String("role"),
			Order:     res.Int("order", 0),
			HTML:      template.HTML(res.HTML),
			PlainText: res.PlainText,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}

// Quote is a testimonial reduced to plain text.
type Quote struct {
	ID   string
	Name string
	Role string
	Text string
}

// Testimonials returns the carousel slides in display order as plain text.
func (s *Service) Testimonials(ctx context.Context) ([]Quote, error) {
	items, err := s.loadTestimonials(ctx)
	if err != nil {
		return nil, err
	}
	quotes := make([]Quote, len(items))
	for i, t := range items {
		quotes[i] = Quote{ID: t.ID, Name: t.Name, Role: t.Role, Text: strings.TrimSpace(t.PlainText)}
	}
	return quotes, nil
}
