// Package symbolclient talks to the upstream symbol server: given an
// artifact identity, it asks for the absolute filesystem path of the PDB
// backing it.
package symbolclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/symcached/symcached/internal/telemetry"
	"github.com/symcached/symcached/pkg/artifact"
)

const (
	requestTimeout = 30 * time.Second
	pathPrefix     = "PATH:"
	plainTextMIME  = "text/plain"
)

// Client is a long-lived, connection-reusing HTTP client for the upstream
// symbol server. One instance is shared by every request the server
// handles; its rate limiter smooths bursts of concurrent cache misses
// (e.g. a background queue's worker pool waking up all at once) into a
// steadier outbound rate so a thundering herd of misses cannot overwhelm
// the upstream server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit bounds outbound requests per second, with burst as the
// maximum instantaneous allowance. A zero or negative rate disables
// limiting entirely.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithHTTPClient overrides the underlying *http.Client, e.g. for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New constructs a Client against baseURL, the upstream symbol server's
// base address.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("symbolclient: parsing base URL %q: %w", baseURL, err)
	}

	c := &Client{
		baseURL: parsed,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TryGetPDBPath asks the upstream symbol server for the absolute path of
// the PDB identified by name/id/age. It returns ("", nil) — no error — for
// every condition the protocol treats as "no path available": non-200
// status, a media type other than text/plain, a body that doesn't start
// with "PATH:", an empty remainder after that prefix, or a timeout.
func (c *Client) TryGetPDBPath(ctx context.Context, name string, id artifact.ID, age uint32) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", nil
		}
	}

	reqURL := c.buildURL(name, id, age)

	ctx, span := telemetry.StartSymbolFetchSpan(ctx, reqURL)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("symbolclient: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are treated as "no path
		// available", not an error, per the upstream-transient contract.
		return "", nil
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	mediaType := resp.Header.Get("Content-Type")
	if mediaType != "" {
		if base, _, err := mime.ParseMediaType(mediaType); err != nil || base != plainTextMIME {
			return "", nil
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", nil
	}

	text := string(body)
	if !strings.HasPrefix(text, pathPrefix) {
		return "", nil
	}

	path := strings.TrimPrefix(text, pathPrefix)
	if path == "" {
		return "", nil
	}
	return path, nil
}

// buildURL constructs <base>/<name>/<id-32-hex-upper><age-hex-upper>/file.ptr,
// inserting a path separator before the suffix only when the base's
// existing path is non-empty and lacks a trailing slash. name is joined
// unescaped into u.Path and left for url.URL itself to percent-encode on
// String() — escaping it up front (e.g. with url.PathEscape) would have
// String() escape the already-escaped result a second time.
func (c *Client) buildURL(name string, id artifact.ID, age uint32) string {
	suffix := fmt.Sprintf("%s/%s%X/file.ptr", name, id.String(), age)

	u := *c.baseURL
	switch {
	case u.Path == "":
		u.Path = "/" + suffix
	case strings.HasSuffix(u.Path, "/"):
		u.Path += suffix
	default:
		u.Path += "/" + suffix
	}
	return u.String()
}
