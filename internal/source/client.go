package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const maxResponseBytes = 4 << 20

// HTTPClient is a rate limited JSON client for deal APIs.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	token     string
	rateLimit time.Duration
	lastReq   time.Time
	mu        sync.Mutex
}

func NewHTTPClient(timeout time.Duration, userAgent, token string) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:    10,
		IdleConnTimeout: 30 * time.Second,
	}
	return &HTTPClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
		token:     token,
		rateLimit: time.Second,
	}
}

// GetJSON performs a GET request expecting a JSON response.
func (c *HTTPClient) GetJSON(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, nil)
}

// PostJSON performs a POST request with a JSON body.
func (c *HTTPClient) PostJSON(ctx context.Context, url string, body io.Reader) ([]byte, error) {
	return c.do(ctx, http.MethodPost, url, body)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, body io.Reader) ([]byte, error) {
	c.wait()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

func (c *HTTPClient) wait() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elapsed := time.Since(c.lastReq); elapsed < c.rateLimit {
		time.Sleep(c.rateLimit - elapsed)
	}
	c.lastReq = time.Now()
}
