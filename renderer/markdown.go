package renderer

import (
	"bytes"
	"fmt"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	htmlRenderer "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// RenderResult wraps HTML markup and the front matter found above it.
type RenderResult struct {
	HTML      []byte
	PlainText string
	Meta      map[string]any
}

// String returns the front matter value for key as a trimmed string.
func (r *RenderResult) String(key string) string {
	if r == nil || r.Meta == nil {
		return ""
	}
	switch v := r.Meta[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// Int returns the front matter value for key as an integer, or fallback.
func (r *RenderResult) Int(key string, fallback int) int {
	if r == nil || r.Meta == nil {
		return fallback
	}
	switch v := r.Meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

// Renderer transforms markdown sources into HTML fragments.
type Renderer struct {
	md goldmark.Markdown
}

// New constructs a renderer with GitHub-flavored markdown, YAML front matter
// and syntax highlighting. Line breaks inside a quote are kept.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			highlighting.NewHighlighting(
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
					chromahtml.WithAllClasses(true),
					chromahtml.ClassPrefix("z-"),
					chromahtml.PreventSurroundingPre(true),
				),
				highlighting.WithWrapperRenderer(codeWrapper),
			),
			meta.Meta,
		),
		goldmark.WithParserOptions(
			parser.WithAttribute(),
		),
		// Quotes come from contributors, so raw HTML is dropped.
		goldmark.WithRendererOptions(
			htmlRenderer.WithHardWraps(),
		),
	)

	return &Renderer{md: md}
}

// Render converts markdown into HTML and returns its front matter and plain text.
func (r *Renderer) Render(src []byte) (*RenderResult, error) {
	ctx := parser.NewContext()
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(ctx))

	values, err := meta.TryGet(ctx)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}

	plain := &strings.Builder{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if node, ok := n.(*ast.Text); ok && entering {
			plain.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				plain.WriteByte(' ')
			}
		}
		if entering && n.Kind() == ast.KindParagraph && plain.Len() > 0 {
			plain.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, err
	}

	return &RenderResult{
		HTML:      buf.Bytes(),
		PlainText: strings.Join(strings.Fields(plain.String()), " "),
		Meta:      values,
	}, nil
}

func codeWrapper(w util.BufWriter, ctx highlighting.CodeBlockContext, entering bool) {
	lang := "text"
	if raw, ok := ctx.Language(); ok && len(raw) > 0 {
		lang = string(raw)
	}
	lang = string(util.EscapeHTML([]byte(lang)))
	if entering {
		_, _ = fmt.Fprintf(w, `<pre tabindex="0" class="z-chroma z-code language-%[1]s" data-lang="%[1]s"><code class="language-%[1]s" data-lang="%[1]s">`, lang)
		return
	}
	_, _ = w.WriteString("</code></pre>\n")
}
