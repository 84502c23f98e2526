package watch

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/bus"
	"github.com/Dairus01/bitcoin-whales/internal/feed"
	"github.com/Dairus01/bitcoin-whales/internal/price"
)

// Default watch parameters.
const (
	DefaultThresholdBTC = 100.0
	DefaultIntervalSec  = 60
)

// Options contains configuration for creating a Watcher.
type Options struct {
	// FeedConfig configures the upstream connection. Zero values use
	// feed.DefaultConfig.
	FeedConfig feed.Config
	// Quoter is the price source. Defaults to the CoinGecko quoter.
	Quoter price.Quoter
	// PriceRefresh is the price refresh interval. Defaults to 60s.
	PriceRefresh time.Duration
	// Bus receives derived events. Required.
	Bus *bus.Bus
	// ThresholdBTC is the initial whale threshold. Defaults to 100 BTC.
	ThresholdBTC float64
	// IntervalSec is the initial summary interval in seconds. Defaults to 60.
	IntervalSec int64
	// Logger for lifecycle messages. Defaults to log.Default().
	Logger *log.Logger
}

// Watcher is the runtime controller: it owns the aggregator and starts the
// price refresh, summary cycle and feed connection as background
// activities sharing one stop signal. It is an explicit, constructed
// object; there is no package-level instance.
type Watcher struct {
	agg       *Aggregator
	feed      *feed.Client
	refresher *price.Refresher
	logger    *log.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	started   atomic.Bool
	startedAt time.Time
}

// New creates a Watcher from opts.
func New(opts Options) *Watcher {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	quoter := opts.Quoter
	if quoter == nil {
		quoter = price.NewCoinGeckoQuoter("")
	}
	refresher := price.NewRefresher(quoter, opts.PriceRefresh, logger)

	threshold := opts.ThresholdBTC
	if threshold == 0 {
		threshold = DefaultThresholdBTC
	}
	intervalSec := opts.IntervalSec
	if intervalSec == 0 {
		intervalSec = DefaultIntervalSec
	}

	agg := NewAggregator(opts.Bus, refresher, threshold, time.Duration(intervalSec)*time.Second)

	feedCfg := opts.FeedConfig
	if feedCfg.Logger == nil {
		feedCfg.Logger = logger
	}

	return &Watcher{
		agg:       agg,
		feed:      feed.NewClient(feedCfg, agg),
		refresher: refresher,
		logger:    logger,
	}
}

// Start launches the background activities. Calling Start on a running
// watcher is a no-op.
func (w *Watcher) Start() {
	if w.started.Swap(true) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	w.mu.Lock()
	w.cancel = cancel
	w.startedAt = time.Now()
	w.mu.Unlock()

	w.runLoop(ctx, "price refresh", w.refresher.Run)
	w.runLoop(ctx, "summary cycle", w.agg.RunSummaryLoop)
	w.runLoop(ctx, "feed connection", w.feed.Run)

	w.logger.Println("watcher started")
}

// runLoop runs fn in a goroutine and logs any non-cancellation exit.
func (w *Watcher) runLoop(ctx context.Context, name string, fn func(context.Context) error) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Printf("%s stopped: %v", name, err)
		}
	}()
}

// Stop signals all activities to terminate and waits for them to exit.
// Loops stop at their next polling point; the feed closes its socket to
// unblock any in-flight read.
func (w *Watcher) Stop() {
	if !w.started.Swap(false) {
		return
	}

	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Println("watcher stopped")
}

// IsRunning reports whether the watcher has been started.
func (w *Watcher) IsRunning() bool {
	return w.started.Load()
}

// Connected reports whether the feed connection is currently established.
func (w *Watcher) Connected() bool {
	return w.feed.Connected()
}

// StartedAt returns the time of the last Start. Zero before the first.
func (w *Watcher) StartedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.startedAt
}

// UpdateConfig applies a partial configuration update and returns the
// now-effective threshold and interval.
func (w *Watcher) UpdateConfig(thresholdBTC *float64, intervalSec *int64) (float64, int64) {
	return w.agg.UpdateConfig(thresholdBTC, intervalSec)
}

// Config returns the current threshold and interval.
func (w *Watcher) Config() (float64, int64) {
	return w.agg.Config()
}
