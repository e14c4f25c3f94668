package assetcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultMaxAge is the lifetime advertised on every response the worker serves.
const DefaultMaxAge = 31536000 * time.Second

// Entry is a stored response snapshot keyed by absolute request URL.
type Entry struct {
	URL        string
	Status     int
	StatusText string
	Header     http.Header
	Body       []byte
	StoredAt   time.Time
}

// Size returns the body length in bytes.
func (e *Entry) Size() int {
	return len(e.Body)
}

func (e *Entry) clone() *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.Header = e.Header.Clone()
	return &out
}

// Response materializes the snapshot as a fresh response for req.
func (e *Entry) Response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		Status:        e.StatusText,
		StatusCode:    e.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func snapshot(key string, resp *http.Response, body []byte, now time.Time) *Entry {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &Entry{
		URL:        key,
		Status:     resp.StatusCode,
		StatusText: status,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   now.UTC(),
	}
}

// CacheControl is the Cache-Control value advertised for maxAge.
func CacheControl(maxAge time.Duration) string {
	return fmt.Sprintf("public, max-age=%d, immutable", int64(maxAge/time.Second))
}

// withLongLifetime returns a copy of h with Cache-Control and Expires forced
// to the long-lived values.
func withLongLifetime(h http.Header, now time.Time, maxAge time.Duration) http.Header {
	out := h.Clone()
	if out == nil {
		out = http.Header{}
	}
	out.Set("Cache-Control", CacheControl(maxAge))
	out.Set("Expires", now.Add(maxAge).UTC().Format(http.TimeFormat))
	return out
}

// cacheKey drops the fragment, which never reaches the network.
func cacheKey(u *url.URL) string {
	clone := *u
	clone.Fragment = ""
	clone.RawFragment = ""
	return clone.String()
}
