package renderer

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

const (
	mediaHTML = "text/html"
	mediaCSS  = "text/css"
	mediaJS   = "application/javascript"
	mediaSVG  = "image/svg+xml"
)

// Minifier shrinks built HTML, CSS, JS and SVG.
type Minifier struct {
	m *minify.M
}

// NewMinifier returns a minifier that keeps document and end tags so the
// output stays friendly to simple parsers.
func NewMinifier() *Minifier {
	m := minify.New()
	m.Add(mediaHTML, &html.Minifier{KeepDocumentTags: true, KeepEndTags: true})
	m.AddFunc(mediaCSS, css.Minify)
	m.AddFunc(mediaSVG, svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile(`^(application|text)/(x-)?(java|ecma)script$`), js.Minify)
	return &Minifier{m: m}
}

// HTML minifies a full HTML document, including inline styles and scripts.
func (m *Minifier) HTML(raw []byte) ([]byte, error) {
	return m.m.Bytes(mediaHTML, raw)
}

// File minifies raw according to the extension of name. Unknown types are
// returned unchanged.
func (m *Minifier) File(name string, raw []byte) ([]byte, bool, error) {
	media := mediaTypeOf(name)
	if media == "" {
		return raw, false, nil
	}
	out, err := m.m.Bytes(media, raw)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func mediaTypeOf(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return mediaHTML
	case ".css":
		return mediaCSS
	case ".js", ".mjs":
		return mediaJS
	case ".svg":
		return mediaSVG
	default:
		return ""
	}
}
