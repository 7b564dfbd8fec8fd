package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// Client is a rate-limited HTTP client shared by the network-backed
// adapters. Consecutive requests are spaced by at least the configured
// interval so sites are not hammered during a check cycle.
type Client struct {
	http      *http.Client
	userAgent string
	interval  time.Duration

	mu   sync.Mutex
	last time.Time
}

// ClientOptions tunes a Client.
type ClientOptions struct {
	Timeout   time.Duration
	RateLimit time.Duration
	UserAgent string
}

// NewClient builds the shared HTTP client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		interval:  opts.RateLimit,
	}
}

// Get performs a rate-limited GET and returns the response body.
func (c *Client) Get(ctx context.Context, url string) ([]byte, string, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) throttle(ctx context.Context) error {
	if c.interval <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.interval - time.Since(c.last)
	c.last = time.Now().Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
