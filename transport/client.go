// Package transport provides the HTTP client shared by the crawlers.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/brandreport/harvester/config"
)

// Client wraps a resty client carrying the browser header set. Retry policy
// belongs to callers; this layer only reports what happened.
type Client struct {
	http *resty.Client
}

// New builds a client with default headers and a bounded timeout.
func New(cfg *config.Config) *Client {
	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetTransport(NewRoundTripper(cfg.Timeout)).
		SetHeaders(map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
			"Connection":      "keep-alive",
		})
	return &Client{http: rc}
}

// NewRoundTripper returns the keep-alive transport used for all outbound
// requests, including the product collector's.
func NewRoundTripper(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// HTTPClient exposes the underlying http.Client so tests can install a mock
// transport.
func (c *Client) HTTPClient() *http.Client {
	return c.http.GetClient()
}

// FetchHTML performs a GET and returns the response body as a string.
// Per-request headers extend or override the defaults.
func (c *Client) FetchHTML(ctx context.Context, url string, headers map[string]string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return "", &RequestError{URL: url, Err: err}
	}
	if !success(res.StatusCode()) {
		return "", &StatusError{URL: url, Status: res.StatusCode()}
	}
	return string(res.Body()), nil
}

// PostJSON performs a JSON POST and decodes the response body into out.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, headers map[string]string, out any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeaders(headers).
		SetBody(payload).
		Post(url)
	if err != nil {
		return &RequestError{URL: url, Err: err}
	}
	if !success(res.StatusCode()) {
		return &StatusError{URL: url, Status: res.StatusCode()}
	}
	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("decode json response from %s: %w", url, err)
	}
	return nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
