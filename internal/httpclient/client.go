// Package httpclient provides the shared, throttled HTTP client used to talk
// to package registries.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AEO3/sbom-compile-orderer/internal/ctxlog"
)

// DefaultUserAgent identifies the tool to registries.
const DefaultUserAgent = "sbom-compile-order/1.0"

// maxBodyBytes caps how much of a response body is buffered.
const maxBodyBytes = 512 << 20

// Config configures a Client.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Throttle  *Throttle
	Transport http.RoundTripper
}

// Client performs GET requests with a descriptive user agent, a bounded
// timeout and an optional per-host throttle. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	throttle  *Throttle
}

// Response is a fully buffered HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// New creates a Client from cfg. A zero Timeout means 30 seconds.
func New(cfg Config) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		userAgent: cfg.UserAgent,
		throttle:  cfg.Throttle,
	}
}

// Get issues a single GET. A non-nil error means no HTTP status was received.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx, req.URL.Host); err != nil {
			return nil, fmt.Errorf("throttle wait for %s: %w", req.URL.Host, err)
		}
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("HTTP: Sending request.", "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug("HTTP: Received response.", "url", url, "status", resp.StatusCode, "bytes", len(body))

	return &Response{URL: url, StatusCode: resp.StatusCode, Body: body}, nil
}

// GetJSON fetches url and decodes a 200 response into v. For any other
// status v is left untouched and the status is returned with a nil error.
func (c *Client) GetJSON(ctx context.Context, url string, v any) (int, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s: %w", url, err)
	}
	return resp.StatusCode, nil
}
