// Package es is a minimal HTTP client for an Elasticsearch-compatible
// document search engine: a liveness probe and a query endpoint, plus the
// query DSL fragments the product search ability needs.
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds connection parameters for the search engine.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseSSL      bool
	VerifyCerts bool
	Timeout     time.Duration
}

// Client talks to one search engine endpoint. It is safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
}

// Dial builds a client from config. No network I/O happens here; callers
// verify liveness with Ping before trusting the handle.
func Dial(cfg Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	transport := http.DefaultTransport
	if cfg.UseSSL && !cfg.VerifyCerts {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // verify_certs=false is an explicit config choice
		transport = t
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, cfg.Port),
		username: cfg.Username,
		password: cfg.Password,
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Ping checks engine liveness. Any failure is reported as a *ConnError.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return &ConnError{Err: err}
	}
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ConnError{Err: fmt.Errorf("ping returned status %d", resp.StatusCode)}
	}
	return nil
}

// Search executes a query body against an index. Transport failures and
// gateway statuses come back as *ConnError, other non-2xx responses as
// *StatusError.
func (c *Client) Search(ctx context.Context, index string, body *Body) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/%s/_search", c.baseURL, index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ConnError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ConnError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnError{Err: fmt.Errorf("read response: %w", err)}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// fall through to decode
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &ConnError{Err: &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}}
	default:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func (c *Client) auth(req *http.Request) {
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}
