// Package fetcher retrieves raw source bytes for monitored URLs over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vigil/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
	defaultMaxBody = 10 << 20
)

// Client fetches source documents with a bounded body size.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBody    int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New builds a fetch client from the HTTP section of the configuration.
func New(cfg *config.Config, opts ...Option) *Client {
	timeout := defaultTimeout
	maxBody := int64(defaultMaxBody)
	userAgent := "vigil/" + config.Version
	if cfg != nil {
		if cfg.HTTP.Timeout > 0 {
			timeout = time.Duration(cfg.HTTP.Timeout) * time.Second
		}
		if cfg.HTTP.MaxBodyBytes > 0 {
			maxBody = cfg.HTTP.MaxBodyBytes
		}
		if trimmed := strings.TrimSpace(cfg.HTTP.UserAgent); trimmed != "" {
			userAgent = trimmed
		}
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBody:    maxBody,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch performs a GET against address and returns the response body.
// Responses outside the 2xx range and bodies larger than the configured
// limit are reported as errors.
func (c *Client) Fetch(ctx context.Context, address string) ([]byte, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errors.New("address must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("fetch returned %d (latency=%v)", resp.StatusCode, latency)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("response body exceeds %d bytes", c.maxBody)
	}
	return body, nil
}
