// Package client is a HTTP client for the inference backend.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a HTTP client
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
}

// New returns a Client for base
func New(base string, timeout time.Duration) (*Client, error) {

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("could not parse inference URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("inference URL must be absolute: %q", base)
	}

	return &Client{
		BaseURL:    u,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewRequest creates a HTTP request for path below the base URL
func (c *Client) NewRequest(ctx context.Context, method, path, rawQuery, contentType string, body io.Reader) (*http.Request, error) {

	u := c.BaseURL.JoinPath(path)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// Do makes a HTTP request
func (c *Client) Do(req *http.Request) (*http.Response, error) {

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, err
}
