// Package apiclient is the single gateway to the polyclinic REST backend.
//
// Every call is fire-once: there are no retries and no backoff. Authenticated
// calls carry the session's bearer token; a 401 on one of them signs the user
// out through the unauthorized hook and reports ErrUnauthorized, which
// callers treat as "abort quietly".
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polyclinic/clinicdesk/internal/platform/middleware"
)

var (
	// ErrNoSession is returned by authenticated calls made while signed out.
	// No request is sent.
	ErrNoSession = errors.New("apiclient: not signed in")

	// ErrUnauthorized means the backend rejected the token and the session
	// has been cleared.
	ErrUnauthorized = errors.New("apiclient: session expired")
)

// TokenSource supplies the current bearer token, "" when signed out.
type TokenSource interface {
	Token() string
}

// Client talks to one backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	logger  zerolog.Logger

	hookMu         sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, tokens TokenSource, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// OnUnauthorized sets the hook run when an authenticated call gets a 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.hookMu.Lock()
	c.onUnauthorized = fn
	c.hookMu.Unlock()
}

type ridKey struct{}

// WithRequestID makes calls made with ctx reuse id as their X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ridKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(ridKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

// Do sends an authenticated JSON request. body may be nil; out may be nil to
// discard the response.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.tokens.Token()
	if token == "" {
		return ErrNoSession
	}
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized(ctx)
		return ErrUnauthorized
	}
	return decodeResponse(resp, out)
}

// DoPublic sends an unauthenticated JSON request.
func (c *Client) DoPublic(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// PostForm sends an unauthenticated form-encoded POST.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, requestID(ctx))

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

// Download streams an authenticated binary response into w and returns the
// filename from Content-Disposition, if any.
func (c *Client) Download(ctx context.Context, path string, w io.Writer) (string, error) {
	token := c.tokens.Token()
	if token == "" {
		return "", ErrNoSession
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(middleware.RequestIDHeader, requestID(ctx))

	resp, err := c.send(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized(ctx)
		return "", ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newAPIError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", &TransportError{Method: req.Method, Path: path, Err: err}
	}

	var name string
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		name = params["filename"]
	}
	return name, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(middleware.RequestIDHeader, requestID(ctx))
	return req, nil
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	start := time.Now()
	rid := req.Header.Get(middleware.RequestIDHeader)
	path := strings.TrimPrefix(req.URL.String(), c.baseURL)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).
			Str("request_id", rid).
			Str("method", req.Method).
			Str("path", path).
			Dur("latency", time.Since(start)).
			Msg("api call failed")
		return nil, &TransportError{Method: req.Method, Path: path, Err: err}
	}

	c.logger.Debug().
		Str("request_id", rid).
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api call")
	return resp, nil
}

func (c *Client) unauthorized(ctx context.Context) {
	c.logger.Info().Msg("backend rejected session token, signing out")
	c.hookMu.RLock()
	fn := c.onUnauthorized
	c.hookMu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

func decodeResponse(resp *http.Response, out interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: resp.Request.Method, Path: resp.Request.URL.Path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", resp.Request.URL.Path, err)
	}
	return nil
}
