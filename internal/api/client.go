// Package api is the HTTP client for the task board server.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/twiced-technology-gmbh/taskboard/internal/calfeed"
	"github.com/twiced-technology-gmbh/taskboard/internal/clierr"
)

const defaultTimeout = 10 * time.Second

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to one server on behalf of one user.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	log   *log.Entry
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Entry) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, clierr.Newf(clierr.InvalidInput, "invalid server URL %q", baseURL).
			WithDetails(map[string]any{"url": baseURL})
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
		log:  log.NewEntry(log.StandardLogger()),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.WithField("component", "api")
	return c, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

// CalendarFeedURL returns the public feed URL for token. No request is made.
func (c *Client) CalendarFeedURL(token string) string {
	return calfeed.FeedURL(c.BaseURL(), token)
}

type errorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// do sends a request and decodes a JSON response into out. It returns
// found=false for 204 responses.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (found bool, err error) {
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	if u.Path, err = url.PathUnescape(u.RawPath); err != nil {
		return false, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return false, fmt.Errorf("building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return false, transportError(method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(log.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("request")

	if resp.StatusCode >= http.StatusBadRequest {
		return false, decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode != http.StatusNoContent, nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, clierr.Wrap(clierr.TransientNetwork, err, "decoding %s %s: %v", method, path, err)
	}
	return true, nil
}

func transportError(method, path string, err error) error {
	var netErr net.Error
	detail := map[string]any{"method": method, "path": path}
	switch {
	case errors.Is(err, context.Canceled):
		return clierr.Wrap(clierr.TransientNetwork, err, "%s %s: request cancelled", method, path).WithDetails(detail)
	case errors.As(err, &netErr) && netErr.Timeout():
		return clierr.Wrap(clierr.TransientNetwork, err, "%s %s: timed out", method, path).WithDetails(detail)
	default:
		return clierr.Wrap(clierr.TransientNetwork, err, "%s %s: %v", method, path, err).WithDetails(detail)
	}
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er errorResponse
	if len(raw) > 0 {
		_ = sonic.Unmarshal(raw, &er)
	}
	if er.Error == "" {
		er.Error = strings.TrimSpace(string(raw))
	}
	if er.Error == "" {
		er.Error = http.StatusText(resp.StatusCode)
	}
	code := er.Code
	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}
	e := clierr.New(code, er.Error)
	if er.Details != nil {
		e.WithDetails(er.Details)
	}
	// Unknown body codes fall back to the class the status implies.
	if e.Class() == clierr.ClassOther {
		switch fallback := codeForStatus(resp.StatusCode); fallback {
		case clierr.Conflict, clierr.NotFound, clierr.TransientNetwork:
			e.Code = fallback
		}
	}
	return e
}

func codeForStatus(status int) string {
	switch {
	case status == http.StatusNotFound:
		return clierr.NotFound
	case status == http.StatusConflict:
		return clierr.Conflict
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return clierr.Unauthorized
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return clierr.InvalidInput
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
		return clierr.TransientNetwork
	default:
		return clierr.InternalError
	}
}

func escape(id string) string { return url.PathEscape(id) }
