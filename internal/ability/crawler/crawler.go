// Package crawler implements the web_crawler ability: fetch a page and
// return its status, body, and response headers.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/merchkit/abilityd/internal/ability"
)

// Options are the injected crawler tunables.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
}

// Result is the crawl outcome.
type Result struct {
	Status  int               `json:"status"`
	Content string            `json:"content"`
	Headers map[string]string `json:"headers"`
}

// Ability implements ability.Ability for web crawling.
type Ability struct {
	opts   Options
	client *http.Client
	logger *zap.Logger
}

var _ ability.Ability = (*Ability)(nil)

// New creates the crawler ability.
func New(opts Options, logger *zap.Logger) *Ability {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	return &Ability{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Name returns the ability name.
func (a *Ability) Name() string { return "web_crawler" }

// Version returns the ability version.
func (a *Ability) Version() string { return "1.0.0" }

// Validate requires a string url. Optional headers must be a map when set.
func (a *Ability) Validate(_ context.Context, c ability.Context) (bool, error) {
	if _, ok := c.String("url"); !ok {
		return false, nil
	}
	if h, present := c["headers"]; present {
		if _, ok := h.(map[string]any); !ok {
			return false, nil
		}
	}
	return true, nil
}

// Execute fetches the page.
func (a *Ability) Execute(ctx context.Context, c ability.Context) (any, error) {
	url, _ := c.String("url")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if h, ok := c["headers"].(map[string]any); ok {
		for k, v := range h {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	a.logger.Info("crawling page", zap.String("url", url))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.opts.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return Result{
		Status:  resp.StatusCode,
		Content: string(body),
		Headers: headers,
	}, nil
}
