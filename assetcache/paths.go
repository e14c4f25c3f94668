package assetcache

import (
	"net/url"
	"strings"
)

// DefaultScriptPath is where the worker considers itself installed when no
// path is configured.
const DefaultScriptPath = "/sw.js"

var precachePaths = []string{
	"",
	"index.html",
	"css/styles.css",
	"js/script.js",
	"images/hero-background.jpeg",
}

// BasePath derives the deployment root from the worker's own path. A worker
// at /landing_page/sw.js serves a site rooted at /landing_page/; one at
// /sw.js serves the origin root.
func BasePath(scriptPath string) string {
	parts := strings.Split(scriptPath, "/")
	if len(parts) > 2 && parts[1] != "" {
		return "/" + parts[1] + "/"
	}
	return "/"
}

// StaticAssets lists the install-time assets under base.
func StaticAssets(base string) []string {
	assets := make([]string, len(precachePaths))
	for i, p := range precachePaths {
		assets[i] = base + p
	}
	return assets
}

func originOf(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "",
		scheme == "http" && port == "80",
		scheme == "https" && port == "443":
		return scheme + "://" + host
	default:
		return scheme + "://" + host + ":" + port
	}
}
