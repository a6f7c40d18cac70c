package search

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/merchkit/abilityd/internal/es"
)

// script drives fake engines from a shared scenario: queued ping and search
// outcomes are consumed in order across every handle the ability dials.
type script struct {
	pingErrs []error // popped per Ping; exhausted queue → nil
	searches []searchOutcome

	dials       int
	pings       int
	searchCalls int
	sleeps      []time.Duration
	bodies      []*es.Body
	indexes     []string
}

type searchOutcome struct {
	resp *es.Response
	err  error
}

func (s *script) popPing() error {
	if len(s.pingErrs) == 0 {
		return nil
	}
	err := s.pingErrs[0]
	s.pingErrs = s.pingErrs[1:]
	return err
}

func (s *script) popSearch() searchOutcome {
	if len(s.searches) == 0 {
		return searchOutcome{resp: respWithHits(0)}
	}
	out := s.searches[0]
	s.searches = s.searches[1:]
	return out
}

type fakeEngine struct {
	script *script
}

func (f *fakeEngine) Ping(_ context.Context) error {
	f.script.pings++
	return f.script.popPing()
}

func (f *fakeEngine) Search(_ context.Context, index string, body *es.Body) (*es.Response, error) {
	f.script.searchCalls++
	f.script.indexes = append(f.script.indexes, index)
	f.script.bodies = append(f.script.bodies, body)
	out := f.script.popSearch()
	return out.resp, out.err
}

func connErr(msg string) error {
	return &es.ConnError{Err: fmt.Errorf("%s", msg)}
}

// respWithHits builds an engine response reporting total as {"value": N}
// with one generated product hit per score.
func respWithHits(total int, scores ...float64) *es.Response {
	hits := make([]es.Hit, len(scores))
	for i, score := range scores {
		src, _ := json.Marshal(map[string]string{
			"style_number": fmt.Sprintf("SN-%03d", i+1),
			"product_name": fmt.Sprintf("product %d", i+1),
			"category":     "necklace",
		})
		hits[i] = es.Hit{ID: fmt.Sprintf("doc-%d", i+1), Score: score, Source: src}
	}
	return &es.Response{
		Hits: es.Hits{
			Total: es.Total{Value: total, Known: true},
			Hits:  hits,
		},
	}
}

func testOptions() Options {
	return Options{
		Index:       "products",
		DefaultSize: 5,
		Fuzziness:   "AUTO",
		MinScore:    0.5,
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Timeout:     time.Second,
		Fallback: FallbackOptions{
			Enabled:  true,
			Keywords: []string{"earring", "bracelet"},
			Size:     3,
		},
	}
}

// newTestAbility wires the ability to scripted engines and records backoff
// sleeps instead of sleeping.
func newTestAbility(t *testing.T, opts Options, sc *script) *Ability {
	t.Helper()
	a := New(opts, func() Engine {
		sc.dials++
		return &fakeEngine{script: sc}
	}, zap.NewNop())
	a.sleep = func(d time.Duration) {
		sc.sleeps = append(sc.sleeps, d)
	}
	return a
}
