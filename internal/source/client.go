package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

var (
	// ErrStatus marks an upstream response outside the 2xx range.
	ErrStatus = errors.New("upstream status")
	// ErrDecode marks an upstream body that could not be parsed.
	ErrDecode = errors.New("upstream payload")
)

// maxBodyBytes bounds how much of an upstream response is read.
const maxBodyBytes = 16 << 20

// Client performs single-attempt GET requests against upstream feeds.
// Adapters never retry; a failed request is reported to the caller as is.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient builds a Client with a tuned transport.  A zero timeout leaves
// requests bounded only by their context.
func NewClient(timeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: tr},
		userAgent:  "cinema-showtimes/1.0",
	}
}

// Get fetches rawURL and returns the body of a 2xx response.  Non-2xx
// responses are reported as ErrStatus.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d from %s", ErrStatus, resp.StatusCode, req.URL.Host)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body from %s: %w", req.URL.Host, err)
	}
	return b, nil
}
