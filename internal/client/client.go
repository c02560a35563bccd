// Package client implements the HTTP client for the shelf API. It owns
// authentication, per-request retries, and rate-limit handling; it knows
// nothing about tasks or the library on disk.
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
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vfaronov/httpheader"
)

const defaultUserAgent = "tanko/1.0"

// ErrUnauthorized indicates the shelf rejected the session token. Callers
// should prompt for a fresh login.
var ErrUnauthorized = errors.New("shelf session expired or invalid")

// Config carries the connection parameters for a Client.
type Config struct {
	BaseURL    string
	UserAgent  string
	ProxyURL   string
	Timeout    time.Duration
	Token      string
	MaxRetries int
}

// Client talks to the shelf API.
type Client struct {
	baseURL    string
	userAgent  string
	maxRetries uint64
	http       *http.Client

	mu    sync.RWMutex
	token string
}

// New builds a Client from cfg. BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("shelf base URL is not configured")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.ProxyURL, err)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  ua,
		maxRetries: uint64(retries),
		token:      cfg.Token,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Token returns the current session token, if any.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// statusError is a non-2xx response that was not retried away.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "shelf returned " + e.status
}

// do performs one request with retry on transient failures. 429 responses
// honor Retry-After before the next attempt; other 4xx are permanent.
func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	var out []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		switch {
		case resp.StatusCode == http.StatusOK:
			// fall through to body read below
		case resp.StatusCode == http.StatusUnauthorized:
			return backoff.Permanent(ErrUnauthorized)
		case resp.StatusCode == http.StatusTooManyRequests:
			if until := httpheader.RetryAfter(resp.Header); !until.IsZero() {
				if err := sleepUntil(ctx, until); err != nil {
					return backoff.Permanent(err)
				}
			}
			return &statusError{resp.StatusCode, resp.Status}
		case resp.StatusCode >= 500:
			return &statusError{resp.StatusCode, resp.Status}
		default:
			return backoff.Permanent(&statusError{resp.StatusCode, resp.Status})
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		out = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	return out, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0 // bounded by retry count, not wall time
	return b
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// getJSON fetches path and decodes the response into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	data, err := c.do(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// postJSON sends body to path and decodes the response into v (when v is
// non-nil).
func (c *Client) postJSON(ctx context.Context, path string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}
	data, err := c.do(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
