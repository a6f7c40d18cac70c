// Package search implements the product_search ability: fuzzy multi-field
// product lookup against an external search engine, with bounded retries,
// self-healing reconnection, and fallback recommendations when the primary
// query comes back empty.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/merchkit/abilityd/internal/ability"
	"github.com/merchkit/abilityd/internal/domain"
	"github.com/merchkit/abilityd/internal/domain/product"
	"github.com/merchkit/abilityd/internal/es"
	"github.com/merchkit/abilityd/internal/metrics"
)

// Engine is the slice of the search client the ability depends on.
type Engine interface {
	Ping(ctx context.Context) error
	Search(ctx context.Context, index string, body *es.Body) (*es.Response, error)
}

// Searched document fields. product_name is boosted over category; the
// style number is matched by substring instead of analysis.
const (
	fieldStyleNumber = "style_number"
	fieldProductName = "product_name"
	fieldCategory    = "category"
)

// FallbackOptions controls the recommendation query issued when the primary
// search finds nothing usable.
type FallbackOptions struct {
	Enabled  bool
	Keywords []string
	Size     int
}

// Options are the injected search tunables.
type Options struct {
	Index        string
	DefaultSize  int
	Fuzziness    string
	MinScore     float64
	MaxAttempts  int
	BackoffBase  time.Duration
	Timeout      time.Duration
	ProbeTimeout time.Duration
	Fallback     FallbackOptions
}

// Ability implements ability.Ability for product search.
//
// One engine handle is shared across concurrent invocations. It is created
// lazily, verified with a ping before first use, and invalidated whenever an
// operation against it fails, so the next call re-dials. The mutex guards
// only the handle slot; queries run outside it.
type Ability struct {
	opts   Options
	dial   func() Engine
	logger *zap.Logger

	mu   sync.Mutex
	conn Engine

	pick  func(n int) int
	sleep func(d time.Duration)
}

var _ ability.Ability = (*Ability)(nil)

// New creates the product search ability. dial builds an unverified engine
// handle; liveness is checked here before the handle is accepted.
func New(opts Options, dial func() Engine, logger *zap.Logger) *Ability {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 2 * time.Second
	}
	if opts.DefaultSize <= 0 {
		opts.DefaultSize = 5
	}
	if opts.Fuzziness == "" {
		opts.Fuzziness = "AUTO"
	}
	if len(opts.Fallback.Keywords) == 0 {
		opts.Fallback.Enabled = false
	}
	return &Ability{
		opts:   opts,
		dial:   dial,
		logger: logger,
		pick:   rand.Intn,
		sleep:  time.Sleep,
	}
}

// WithRand replaces the fallback keyword selector with a seeded source.
func (a *Ability) WithRand(r *rand.Rand) *Ability {
	a.pick = r.Intn
	return a
}

// Name returns the ability name.
func (a *Ability) Name() string { return "product_search" }

// Version returns the ability version.
func (a *Ability) Version() string { return "1.0.0" }

// Validate requires a string keyword in the context.
func (a *Ability) Validate(_ context.Context, c ability.Context) (bool, error) {
	_, ok := c.String("keyword")
	return ok, nil
}

// Execute runs the search. The returned value is always a product.Result
// except when the engine cannot be reached at all (ErrEngineConnection) or
// the primary query exhausts its retries (ErrSearchUnavailable).
func (a *Ability) Execute(ctx context.Context, c ability.Context) (any, error) {
	raw, _ := c.String("keyword")
	keyword := strings.TrimSpace(raw)

	size, ok := c.Int("size")
	if !ok || size <= 0 {
		size = a.opts.DefaultSize
	}

	if keyword == "" {
		return product.Empty("empty search keyword"), nil
	}

	a.logger.Info("searching products", zap.String("keyword", keyword), zap.Int("size", size))

	// First use establishes the shared handle; a dead engine fails the call
	// here before any query is attempted.
	if _, err := a.acquire(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEngineConnection, err)
	}

	body := &es.Body{
		Query: es.BoolShould(1,
			es.FuzzyMultiMatch(keyword, []string{fieldProductName + "^3", fieldCategory + "^2"}, a.opts.Fuzziness),
			es.Wildcard(fieldStyleNumber, keyword),
		),
		Size: size,
	}

	resp, err := a.searchWithRetry(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSearchUnavailable, err)
	}

	rawTotal := totalOf(resp)
	hits := collectHits(resp, a.opts.MinScore)

	if len(hits) == 0 && a.opts.Fallback.Enabled {
		a.logger.Info("no results, using fallback recommendations", zap.String("keyword", keyword))
		return a.fallback(ctx, keyword), nil
	}

	return product.Result{
		Success:       true,
		Results:       hits,
		Total:         len(hits),
		OriginalTotal: rawTotal,
	}, nil
}

// fallback runs the recommendation query with a pseudo-random keyword from
// the configured set. A fallback that exhausts its retries is reported as a
// non-success result, never as an error: the call has already committed to
// best-effort degradation.
func (a *Ability) fallback(ctx context.Context, originalKeyword string) product.Result {
	keywords := a.opts.Fallback.Keywords
	chosen := keywords[a.pick(len(keywords))]
	a.logger.Info("fallback keyword chosen", zap.String("keyword", chosen))

	body := &es.Body{
		Query: es.MultiMatch(chosen, []string{fieldProductName, fieldCategory}),
		Size:  a.opts.Fallback.Size,
	}

	resp, err := a.searchWithRetry(ctx, body)
	if err != nil {
		metrics.SearchFallbacksTotal.WithLabelValues("exhausted").Inc()
		a.logger.Warn("fallback query failed", zap.String("keyword", chosen), zap.Error(err))
		return product.Result{
			Success:         false,
			Results:         []product.Hit{},
			IsFallback:      true,
			FallbackKeyword: chosen,
			OriginalKeyword: originalKeyword,
			Error:           fmt.Sprintf("fallback search failed: %v", err),
		}
	}
	metrics.SearchFallbacksTotal.WithLabelValues("ok").Inc()

	// Fallback hits skip the min-score filter.
	hits := collectHits(resp, 0)
	for i := range hits {
		hits[i].IsFallback = true
		hits[i].FallbackKeyword = chosen
	}

	return product.Result{
		Success:         true,
		Results:         hits,
		Total:           len(hits),
		OriginalTotal:   totalOf(resp),
		IsFallback:      true,
		FallbackKeyword: chosen,
		OriginalKeyword: originalKeyword,
	}
}

// searchWithRetry attempts the query up to MaxAttempts times with linear
// backoff (base × attempt number). After a connectivity-class failure the
// shared handle is probed with a short ping before the next attempt; a
// failed probe drops it so the attempt re-dials. Non-connectivity failures
// back off without touching the handle. A connectivity failure on the last
// attempt drops the handle outright.
func (a *Ability) searchWithRetry(ctx context.Context, body *es.Body) (*es.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		conn, err := a.acquire(ctx)
		if err != nil {
			lastErr = err
		} else {
			qctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
			resp, qerr := conn.Search(qctx, a.opts.Index, body)
			cancel()
			if qerr == nil {
				return resp, nil
			}
			lastErr = qerr
		}

		if attempt == a.opts.MaxAttempts {
			// No retry follows, so a connectivity failure drops the handle
			// here; the next invocation starts from a fresh dial.
			if conn != nil && es.IsConnError(lastErr) {
				a.invalidate(conn)
			}
			break
		}

		metrics.SearchRetriesTotal.Inc()
		a.logger.Warn("search attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Error(lastErr),
		)

		a.sleep(a.opts.BackoffBase * time.Duration(attempt))

		if es.IsConnError(lastErr) {
			a.recheck(ctx)
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", a.opts.MaxAttempts, lastErr)
}

// acquire returns the shared handle, dialing and ping-verifying a new one
// when the slot is empty. A handle that fails its ping is discarded, not
// stored.
func (a *Ability) acquire(ctx context.Context) (Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn != nil {
		return a.conn, nil
	}

	conn := a.dial()
	pctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()
	if err := conn.Ping(pctx); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}

	a.conn = conn
	return conn, nil
}

// invalidate clears the slot if it still holds the failed handle. A newer
// handle installed by a concurrent call is left alone.
func (a *Ability) invalidate(failed Engine) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == failed {
		a.conn = nil
	}
}

// recheck probes the current handle with a short timeout and drops it when
// the probe fails, so the next acquire re-dials.
func (a *Ability) recheck(ctx context.Context) {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn == nil {
		return
	}

	pctx, cancel := context.WithTimeout(ctx, a.opts.ProbeTimeout)
	defer cancel()
	if err := conn.Ping(pctx); err != nil {
		a.logger.Warn("connection probe failed, reconnecting", zap.Error(err))
		a.invalidate(conn)
	}
}

// totalOf normalizes the engine-reported total hit count, counting returned
// hits when the engine's total was unparseable.
func totalOf(resp *es.Response) int {
	if resp.Hits.Total.Known {
		return resp.Hits.Total.Value
	}
	return len(resp.Hits.Hits)
}

// hitSource is the indexed product document shape.
type hitSource struct {
	StyleNumber string `json:"style_number"`
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
}

// collectHits normalizes engine hits into product records, discarding hits
// scoring below minScore.
func collectHits(resp *es.Response, minScore float64) []product.Hit {
	hits := make([]product.Hit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		if h.Score < minScore {
			continue
		}

		var src hitSource
		if len(h.Source) > 0 {
			// Unknown source shapes degrade to empty fields, not failures.
			_ = json.Unmarshal(h.Source, &src)
		}

		hits = append(hits, product.Hit{
			StyleNumber: src.StyleNumber,
			ProductName: src.ProductName,
			Category:    src.Category,
			Score:       h.Score,
		})
	}
	return hits
}
