package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix namespaces environment overrides, e.g. LANDING_LISTEN.
const EnvPrefix = "LANDING_"

// Cache drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// CacheConfig groups asset cache settings.
type CacheConfig struct {
	Name       string `json:"name" env:"NAME"`
	Driver     string `json:"driver" env:"DRIVER"`
	Path       string `json:"path" env:"PATH"`
	MaxAgeSec  int    `json:"maxAgeSec" env:"MAX_AGE_SEC"`
	ScriptPath string `json:"scriptPath" env:"SCRIPT_PATH"`
}

// MaxAge returns the advertised cache lifetime.
func (c CacheConfig) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSec) * time.Second
}

// CarouselConfig tunes the testimonials carousel.
type CarouselConfig struct {
	Breakpoint       int `json:"breakpoint" env:"BREAKPOINT"`
	IntervalMs       int `json:"intervalMs" env:"INTERVAL_MS"`
	ResizeDebounceMs int `json:"resizeDebounceMs" env:"RESIZE_DEBOUNCE_MS"`
}

// Interval returns the auto-advance period.
func (c CarouselConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// ResizeDebounce returns the resize quiet period.
func (c CarouselConfig) ResizeDebounce() time.Duration {
	return time.Duration(c.ResizeDebounceMs) * time.Millisecond
}

// Config encapsulates runtime and build-time options.
type Config struct {
	Live                   bool           `json:"live" env:"LIVE"`
	Listen                 string         `json:"listen" env:"LISTEN"`
	Origin                 string         `json:"origin" env:"ORIGIN"`
	Upstream               string         `json:"upstream" env:"UPSTREAM"`
	OutputDir              string         `json:"outputDir" env:"OUTPUT_DIR"`
	ContentDir             string         `json:"contentDir" env:"CONTENT_DIR"`
	TemplateDir            string         `json:"templateDir" env:"TEMPLATE_DIR"`
	SiteName               string         `json:"siteName" env:"SITE_NAME"`
	EnableTLS              bool           `json:"enableTLS" env:"ENABLE_TLS"`
	TLSCert                string         `json:"tlsCert" env:"TLS_CERT"`
	TLSKey                 string         `json:"tlsKey" env:"TLS_KEY"`
	LogLevel               string         `json:"logLevel" env:"LOG_LEVEL"`
	TrustedProxies         []string       `json:"trustedProxies" env:"TRUSTED_PROXIES"`
	TrustedRemoteAddrLevel int            `json:"trustedRemoteAddrLevel" env:"TRUSTED_REMOTE_ADDR_LEVEL"`
	Cache                  CacheConfig    `json:"cache" envPrefix:"CACHE_"`
	Carousel               CarouselConfig `json:"carousel" envPrefix:"CAROUSEL_"`
	originURL              *url.URL       `json:"-"`
	upstreamURL            *url.URL       `json:"-"`
	trustedProxyPrefixes   []netip.Prefix `json:"-"`
}

// Load reads configuration from disk, applies LANDING_* environment overrides
// and sane defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		bytes, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(bytes, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	c.Origin = strings.TrimSpace(c.Origin)
	if c.Origin == "" {
		c.Origin = "http://localhost:8080"
	}
	c.Upstream = strings.TrimSpace(c.Upstream)
	if c.OutputDir == "" {
		c.OutputDir = "./dist"
	}
	if c.ContentDir == "" {
		c.ContentDir = "./content"
	}
	if c.TemplateDir == "" {
		c.TemplateDir = "./template"
	}

	c.SiteName = strings.TrimSpace(c.SiteName)
	if c.SiteName == "" {
		c.SiteName = "7oh"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.TrustedRemoteAddrLevel <= 0 {
		c.TrustedRemoteAddrLevel = 1
	}

	c.Cache.Name = strings.TrimSpace(c.Cache.Name)
	if c.Cache.Name == "" {
		c.Cache.Name = "7oh-landing-page-v2"
	}
	c.Cache.Driver = strings.ToLower(strings.TrimSpace(c.Cache.Driver))
	if c.Cache.Driver == "" {
		c.Cache.Driver = DriverMemory
	}
	if c.Cache.Driver == DriverSQLite && strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = "./data/assets.db"
	}
	if c.Cache.MaxAgeSec <= 0 {
		c.Cache.MaxAgeSec = 31536000
	}
	if c.Cache.ScriptPath == "" {
		c.Cache.ScriptPath = "/sw.js"
	}

	if c.Carousel.Breakpoint <= 0 {
		c.Carousel.Breakpoint = 768
	}
	if c.Carousel.IntervalMs <= 0 {
		c.Carousel.IntervalMs = 5000
	}
	if c.Carousel.ResizeDebounceMs <= 0 {
		c.Carousel.ResizeDebounceMs = 150
	}

	return c.compileTrustedProxies()
}

func (c *Config) validate() error {
	origin, err := parseHTTPURL(c.Origin)
	if err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	c.originURL = &url.URL{Scheme: origin.Scheme, Host: origin.Host}

	c.upstreamURL = nil
	if c.Upstream != "" {
		upstream, err := parseHTTPURL(c.Upstream)
		if err != nil {
			return fmt.Errorf("invalid upstream: %w", err)
		}
		c.upstreamURL = upstream
	}

	if c.EnableTLS {
		if c.TLSCert == "" || c.TLSKey == "" {
			return fmt.Errorf("tls enabled but certificates missing")
		}
	}
	switch c.Cache.Driver {
	case DriverMemory, DriverSQLite:
	default:
		return fmt.Errorf("unknown cache driver %q", c.Cache.Driver)
	}
	if !strings.HasPrefix(c.Cache.ScriptPath, "/") {
		return fmt.Errorf("cache scriptPath must be absolute: %q", c.Cache.ScriptPath)
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return nil, errors.New("host missing")
	}
	return u, nil
}

// OriginURL returns the public scheme://host the site is served under.
func (c *Config) OriginURL() *url.URL {
	if c.originURL == nil {
		return nil
	}
	clone := *c.originURL
	return &clone
}

// UpstreamURL returns the upstream origin, or nil when the build output is
// served in-process.
func (c *Config) UpstreamURL() *url.URL {
	if c.upstreamURL == nil {
		return nil
	}
	clone := *c.upstreamURL
	return &clone
}

func (c *Config) compileTrustedProxies() error {
	if c.trustedProxyPrefixes != nil {
		c.trustedProxyPrefixes = c.trustedProxyPrefixes[:0]
	}
	for _, entry := range c.TrustedProxies {
		token := strings.TrimSpace(entry)
		if token == "" {
			continue
		}
		if strings.Contains(token, "/") {
			prefix, err := netip.ParsePrefix(token)
			if err != nil {
				return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			c.trustedProxyPrefixes = append(c.trustedProxyPrefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(token)
		if err != nil {
			return fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		c.trustedProxyPrefixes = append(c.trustedProxyPrefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return nil
}

// IsTrustedProxy reports whether the provided address is within the trusted proxy list.
func (c *Config) IsTrustedProxy(addr netip.Addr) bool {
	for _, prefix := range c.trustedProxyPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// RemoteAddrFromRequest determines the originating client address. It walks
// X-Forwarded-For from the right, skipping at most TrustedRemoteAddrLevel
// trusted hops, and falls back to the direct peer.
func (c *Config) RemoteAddrFromRequest(r *http.Request) (netip.Addr, []netip.Addr) {
	chain := remoteAddrChain(r)
	if len(chain) == 0 {
		return netip.Addr{}, nil
	}

	allowed := max(c.TrustedRemoteAddrLevel, 0)
	idx := len(chain) - 1
	for idx > 0 && allowed > 0 && c.IsTrustedProxy(chain[idx]) {
		idx--
		allowed--
	}
	return chain[idx], chain
}

func remoteAddrChain(r *http.Request) []netip.Addr {
	chain := make([]netip.Addr, 0, 4)
	for raw := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if addr, err := netip.ParseAddr(token); err == nil {
			chain = append(chain, addr)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(host)); err == nil {
		chain = append(chain, addr)
	}
	return chain
}
