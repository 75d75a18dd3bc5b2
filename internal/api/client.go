package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tiquetera/internal/shared/config"
	"tiquetera/pkg/logger"

	"github.com/google/uuid"
)

// TokenStore supplies the stored auth token and drops it when the backend
// rejects it.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Client talks to the marketplace REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	log        *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for outbound requests.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a backend client. tokens may be nil for anonymous use.
func NewClient(cfg config.APIConfig, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		log:        logger.GetDefault(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// RequestOption tunes a single request
type RequestOption func(*request)

type request struct {
	anonymous bool
	timeout   time.Duration
}

// Anonymous sends the request without the Authorization header.
func Anonymous() RequestOption {
	return func(r *request) { r.anonymous = true }
}

// Timeout bounds a single request tighter than the client default.
func Timeout(d time.Duration) RequestOption {
	return func(r *request) { r.timeout = d }
}

// Get issues a GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}, opts ...RequestOption) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, opts...)
}

// Post issues a POST with a JSON body and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}, opts ...RequestOption) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, opts...)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, opts ...RequestOption) error {
	var ro request
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ro.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !ro.anonymous && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stored token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		nerr := &NetworkError{Method: method, Path: path, Err: err}
		c.log.LogOutboundRequest(ctx, method, path, requestID, 0, time.Since(start), nerr)
		return nerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		nerr := &NetworkError{Method: method, Path: path, Err: err}
		c.log.LogOutboundRequest(ctx, method, path, requestID, resp.StatusCode, time.Since(start), nerr)
		return nerr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := parseErrorBody(resp.StatusCode, data)
		c.log.LogOutboundRequest(ctx, method, path, requestID, resp.StatusCode, time.Since(start), se)
		if resp.StatusCode == http.StatusUnauthorized {
			c.clearSession(ctx)
		}
		return se
	}
	c.log.LogOutboundRequest(ctx, method, path, requestID, resp.StatusCode, time.Since(start), nil)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// clearSession drops credentials after a 401. The request is not retried.
func (c *Client) clearSession(ctx context.Context) {
	if c.tokens == nil {
		return
	}
	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.log.ErrorWithContext(ctx, "failed to clear session", err, nil)
		return
	}
	c.log.LogSessionCleared(ctx, "backend returned 401")
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }
