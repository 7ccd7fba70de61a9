// Package origin performs the single upstream retrieval on a cache miss and
// classifies the outcome: success, upstream error status, or transport
// failure. No retry logic lives here; one caller-triggered miss means one
// attempt.
package origin

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/script-hub/script-hub/internal/stream"
	"github.com/script-hub/script-hub/internal/version"
)

// errorBodyLimit bounds how much of a failed upstream body is drained before
// closing, enough to let the transport reuse the connection.
const errorBodyLimit = 4 * 1024

// FetchOptions carries the cache directives applied to a fetch. EdgeTTL is
// recorded on the result for downstream cache headers; CacheEverything
// disables the default content-type eligibility rules so plain-text scripts
// are still cacheable.
type FetchOptions struct {
	EdgeTTL         time.Duration
	CacheEverything bool
}

// Result is a successful (2xx) upstream response. Body is read-once; split
// it before handing it to more than one consumer.
type Result struct {
	Status    int
	Header    http.Header
	Body      *stream.Body
	Cacheable bool
	EdgeTTL   time.Duration
}

// UpstreamStatusError reports a non-2xx upstream response; callers surface
// it as 502.
type UpstreamStatusError struct {
	Status int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// NetworkError reports a transport-level failure (DNS, TLS, timeout);
// callers surface it as 500.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("origin unreachable: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fetcher issues bare GETs through the shared upstream client.
type Fetcher struct {
	client *http.Client
}

// NewFetcher wraps the shared http.Client.
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch retrieves url with a request carrying no caller-derived headers.
// The request context is detached from request cancellation because the
// cache-population consumer of the body outlives the caller's request
// lifecycle; the client timeout still bounds the fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string, opts FetchOptions) (*Result, error) {
	ctx = context.WithoutCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("User-Agent", "script-hub/"+version.Version)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, errorBodyLimit))
		resp.Body.Close()
		return nil, &UpstreamStatusError{Status: resp.StatusCode}
	}

	return &Result{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      stream.NewBody(resp.Body),
		Cacheable: opts.CacheEverything || defaultCacheableType(resp.Header.Get("Content-Type")),
		EdgeTTL:   opts.EdgeTTL,
	}, nil
}

// defaultCacheableTypes mirrors the usual edge default of caching static
// asset types only; anything else needs CacheEverything.
var defaultCacheableTypes = map[string]struct{}{
	"application/javascript":   {},
	"application/json":         {},
	"application/octet-stream": {},
	"application/zip":          {},
	"image/gif":                {},
	"image/jpeg":               {},
	"image/png":                {},
	"image/svg+xml":            {},
	"text/css":                 {},
}

func defaultCacheableType(contentType string) bool {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	_, ok := defaultCacheableTypes[strings.ToLower(parsed)]
	return ok
}
