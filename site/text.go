package site

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.Und, cases.NoLower)

// deriveTitle turns a file name such as "ana-souza.md" into "Ana Souza".
func deriveTitle(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	name = strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	}), " ")
	if name == "" {
		return "Untitled"
	}
	return titleCaser.String(name)
}

// metaDescription collapses whitespace and cuts at the last word boundary
// that fits in limit runes.
func metaDescription(summary, fallback string) string {
	const limit = 160
	text := strings.Join(strings.Fields(summary), " ")
	if text == "" {
		text = strings.Join(strings.Fields(fallback), " ")
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit-1])
	if i := strings.LastIndexByte(cut, ' '); i > limit/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// slugify folds accents away and keeps lowercase letters and digits joined
// by single dashes, so "Zoë O'Brien" becomes "zoe-o-brien".
func slugify(input string) string {
	var sb strings.Builder
	pendingDash := false
	for _, r := range norm.NFKD.String(input) {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			pendingDash = false
			sb.WriteRune(unicode.ToLower(r))
		default:
			pendingDash = true
		}
	}
	if sb.Len() == 0 {
		return "slide"
	}
	return sb.String()
}
