// Package watch contains the aggregation core: per-interval statistics,
// whale classification, the summary cycle, and the watcher that ties the
// feed, price source and event bus together.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/domain"
	"github.com/Dairus01/bitcoin-whales/internal/observability"
)

// SatPerBTC is the number of satoshis in one BTC.
const SatPerBTC = 1e8

// Publisher delivers derived events to subscribers.
type Publisher interface {
	Publish(ev domain.Event)
}

// PriceSource exposes the latest cached BTC price without blocking.
type PriceSource interface {
	Latest() (usd float64, ok bool)
}

// Aggregator consumes decoded feed events, maintains the per-interval
// window, classifies whales, and emits derived events.
//
// The window counters and the live config share one mutex: a summary
// snapshot can never observe a transaction counted but not yet classified,
// and no reader ever sees a torn threshold/interval pair.
type Aggregator struct {
	publisher Publisher
	price     PriceSource

	mu           sync.Mutex
	txCount      int64
	totalSat     int64
	whaleCount   int64
	thresholdBTC float64
	interval     time.Duration
}

// NewAggregator creates an aggregator publishing to publisher and converting
// values with price.
func NewAggregator(publisher Publisher, price PriceSource, thresholdBTC float64, interval time.Duration) *Aggregator {
	return &Aggregator{
		publisher:    publisher,
		price:        price,
		thresholdBTC: thresholdBTC,
		interval:     interval,
	}
}

// HandleTransaction ingests one decoded transaction: updates the window and,
// when the total meets the threshold in effect right now, emits a WhaleEvent.
// Classification uses the live threshold, not the value at interval start.
func (a *Aggregator) HandleTransaction(tx *domain.Transaction) {
	// A transaction with no parseable outputs carries no value; it is
	// neither counted nor classified.
	if len(tx.Outputs) == 0 {
		return
	}

	totalSat := tx.TotalSat()
	totalBTC := float64(totalSat) / SatPerBTC

	a.mu.Lock()
	defer a.mu.Unlock()

	a.txCount++
	a.totalSat += totalSat

	if totalBTC >= a.thresholdBTC {
		a.whaleCount++
		a.publish(&domain.WhaleEvent{
			Hash:      tx.Hash,
			ValueBTC:  totalBTC,
			ValueUSD:  totalBTC * a.latestPrice(),
			Timestamp: tx.Time,
			Address:   tx.FirstAddress(),
		})
		observability.RecordWhaleDetected()
	}

	observability.RecordTransactionProcessed()
}

// HandleBlock emits a BlockEvent immediately. The timestamp is the local
// observation time; upstream block clocks are not trusted.
func (a *Aggregator) HandleBlock(b *domain.Block) {
	a.publish(&domain.BlockEvent{
		Height:    b.Height,
		TxCount:   b.TxCount,
		Timestamp: time.Now().Unix(),
	})
	observability.RecordBlockObserved()
}

// RunSummaryLoop emits a summary once per interval until ctx is cancelled.
// The interval is re-read each cycle, so a live change takes effect on the
// next cycle. Empty intervals are suppressed.
func (a *Aggregator) RunSummaryLoop(ctx context.Context) error {
	for {
		a.mu.Lock()
		interval := a.interval
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		a.emitSummary()
	}
}

// emitSummary atomically snapshots and resets the window, then publishes a
// SummaryEvent unless the interval was empty.
func (a *Aggregator) emitSummary() {
	a.mu.Lock()
	count := a.txCount
	totalSat := a.totalSat
	whales := a.whaleCount
	a.txCount = 0
	a.totalSat = 0
	a.whaleCount = 0
	a.mu.Unlock()

	if count == 0 {
		return
	}

	totalBTC := float64(totalSat) / SatPerBTC
	avgBTC := totalBTC / float64(count)
	usd := a.latestPrice()

	a.publish(&domain.SummaryEvent{
		Count:     count,
		TotalBTC:  totalBTC,
		AvgBTC:    avgBTC,
		TotalUSD:  totalBTC * usd,
		AvgUSD:    avgBTC * usd,
		Whales:    whales,
		Timestamp: time.Now().Unix(),
	})
	observability.RecordSummaryEmitted()
}

// UpdateConfig mutates the supplied fields only; a nil parameter leaves the
// current value untouched. A non-positive interval is ignored outright, as
// it would turn the summary cycle into a busy spin. Returns the
// now-effective values.
func (a *Aggregator) UpdateConfig(thresholdBTC *float64, intervalSec *int64) (float64, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if thresholdBTC != nil {
		a.thresholdBTC = *thresholdBTC
	}
	if intervalSec != nil && *intervalSec > 0 {
		a.interval = time.Duration(*intervalSec) * time.Second
	}
	return a.thresholdBTC, int64(a.interval / time.Second)
}

// Config returns the current threshold and summary interval in seconds.
func (a *Aggregator) Config() (float64, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.thresholdBTC, int64(a.interval / time.Second)
}

// latestPrice returns the cached USD price, or 0 when none is cached yet so
// converted fields default to zero instead of failing the event.
func (a *Aggregator) latestPrice() float64 {
	if a.price == nil {
		return 0
	}
	usd, ok := a.price.Latest()
	if !ok {
		return 0
	}
	return usd
}

func (a *Aggregator) publish(ev domain.Event) {
	if a.publisher == nil {
		return
	}
	a.publisher.Publish(ev)
	observability.RecordEventPublished(ev.Kind().String())
}
