package assetcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// LocalTransport answers same-origin requests in-process with Handler and
// sends everything else to Fallback.
type LocalTransport struct {
	Origin   *url.URL
	Handler  http.Handler
	Fallback http.RoundTripper
}

func (t *LocalTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Origin != nil && originOf(req.URL) != originOf(t.Origin) {
		if t.Fallback == nil {
			return nil, fmt.Errorf("local transport: no route to %s", originOf(req.URL))
		}
		return t.Fallback.RoundTrip(req)
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}

	w := &bufferedWriter{header: http.Header{}}
	t.Handler.ServeHTTP(w, req)
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", w.status, http.StatusText(w.status)),
		StatusCode:    w.status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        w.header,
		Body:          io.NopCloser(bytes.NewReader(w.body.Bytes())),
		ContentLength: int64(w.body.Len()),
		Request:       req,
	}, nil
}

type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status != 0 {
		return
	}
	b.status = status
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

// UpstreamTransport forwards same-origin requests to the host actually
// serving the site, for example a static hosting bucket. Responses keep the
// original request so they still look same-origin to the worker.
type UpstreamTransport struct {
	Origin   *url.URL
	Upstream *url.URL
	Next     http.RoundTripper
}

func (t *UpstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.Next
	if next == nil {
		next = http.DefaultTransport
	}
	if originOf(req.URL) != originOf(t.Origin) {
		return next.RoundTrip(req)
	}

	out := req.Clone(req.Context())
	out.URL.Scheme = t.Upstream.Scheme
	out.URL.Host = t.Upstream.Host
	if prefix := strings.TrimSuffix(t.Upstream.Path, "/"); prefix != "" {
		out.URL.Path = prefix + req.URL.Path
		out.URL.RawPath = ""
	}
	out.Host = t.Upstream.Host

	resp, err := next.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}
