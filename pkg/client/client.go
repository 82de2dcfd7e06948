// Package client talks to an arcadesyncd distribution server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/arcadesync/pkg/arcadesync/types"
)

// DefaultTimeout bounds every request, including package downloads.
const DefaultTimeout = 5 * time.Minute

// maxSmallBody caps manifest, config and flag responses.
const maxSmallBody = 16 << 20

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("not found on server")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client is an HTTP client for one server.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New returns a client for the server at serverURL, e.g. http://host:5000.
func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", serverURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", serverURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "arcadesync",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u.Path = c.base.Path + "/" + strings.Join(parts, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s %s: %w", method, target, ErrNotFound)
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return nil, &StatusError{
		Method: method,
		URL:    target,
		Code:   resp.StatusCode,
		Body:   strings.TrimSpace(string(snippet)),
	}
}

func (c *Client) getJSON(ctx context.Context, target string, v any) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSmallBody)).Decode(v); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", target, err)
	}
	return resp.Header, nil
}

// Manifest fetches the package manifest.
func (c *Client) Manifest(ctx context.Context) (*types.Manifest, error) {
	m := types.NewManifest()
	if _, err := c.getJSON(ctx, c.endpoint("manifest"), m); err != nil {
		return nil, err
	}
	if m.Files == nil {
		m.Files = []types.PackageEntry{}
	}
	return m, nil
}

// Download streams the named package into w and returns the bytes written.
func (c *Client) Download(ctx context.Context, name string, w io.Writer) (int64, error) {
	target := c.endpoint("download", name)
	resp, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading %s: %w", name, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("downloading %s: short body (%d of %d bytes)", name, n, resp.ContentLength)
	}
	return n, nil
}

// ConfigBlob fetches the shared config file.
func (c *Client) ConfigBlob(ctx context.Context) ([]byte, error) {
	target := c.endpoint("config")
	resp, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSmallBody))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	return data, nil
}

// FreePlay fetches the remote flag. present is false when the server reports
// the flag was never set. Servers that omit the X-FreePlay-Set header are
// treated as having it set.
func (c *Client) FreePlay(ctx context.Context) (value bool, present bool, err error) {
	var fp struct {
		FreePlay *bool `json:"freePlay"`
	}
	header, err := c.getJSON(ctx, c.endpoint("freeplay"), &fp)
	if err != nil {
		return false, false, err
	}

	present = true
	if raw := header.Get(types.FreePlaySetHeader); raw != "" {
		if set, perr := strconv.ParseBool(strings.TrimSpace(raw)); perr == nil {
			present = set
		}
	}
	if fp.FreePlay == nil {
		return false, false, nil
	}
	return *fp.FreePlay, present, nil
}

// SetFreePlay stores the remote flag and returns the value the server echoed.
func (c *Client) SetFreePlay(ctx context.Context, value bool) (bool, error) {
	payload, err := json.Marshal(types.FreePlay{FreePlay: value})
	if err != nil {
		return false, err
	}

	resp, err := c.do(ctx, http.MethodPost, c.endpoint("freeplay"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var echoed types.FreePlay
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxSmallBody)).Decode(&echoed); err != nil {
		return false, fmt.Errorf("decoding freeplay response: %w", err)
	}
	return echoed.FreePlay, nil
}

// Ping reports whether the server answers the manifest endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.endpoint("manifest"), "", nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxSmallBody))
	return resp.Body.Close()
}
