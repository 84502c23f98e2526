package price

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// scriptedQuoter returns queued results in order, repeating the last one.
type scriptedQuoter struct {
	mu      sync.Mutex
	results []quoteResult
}

type quoteResult struct {
	usd float64
	err error
}

func (q *scriptedQuoter) QuoteUSD(ctx context.Context) (float64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r := q.results[0]
	if len(q.results) > 1 {
		q.results = q.results[1:]
	}
	return r.usd, r.err
}

func TestRefresher_CachesLatestValue(t *testing.T) {
	q := &scriptedQuoter{results: []quoteResult{{usd: 60000}}}
	r := NewRefresher(q, 0, nil)

	if _, ok := r.Latest(); ok {
		t.Fatal("expected no price before the first refresh")
	}

	r.refresh(context.Background())

	usd, ok := r.Latest()
	if !ok {
		t.Fatal("expected a cached price after refresh")
	}
	if usd != 60000 {
		t.Errorf("expected 60000, got %v", usd)
	}
}

func TestRefresher_FailureKeepsPreviousValue(t *testing.T) {
	q := &scriptedQuoter{results: []quoteResult{
		{usd: 60000},
		{err: errors.New("quote service down")},
	}}
	r := NewRefresher(q, 0, nil)

	ctx := context.Background()
	r.refresh(ctx)
	r.refresh(ctx) // fails; previous value must survive

	usd, ok := r.Latest()
	if !ok || usd != 60000 {
		t.Errorf("expected cached 60000 after a failed refresh, got %v (ok=%v)", usd, ok)
	}
}

func TestRefresher_FailureFirstMeansNoPrice(t *testing.T) {
	q := &scriptedQuoter{results: []quoteResult{{err: errors.New("down")}}}
	r := NewRefresher(q, 0, nil)

	r.refresh(context.Background())

	if _, ok := r.Latest(); ok {
		t.Error("expected no price when every quote has failed")
	}
}
