package price

import (
	"context"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/observability"
)

// DefaultRefreshInterval is one quote per minute, well inside the public
// API's rate limits.
const DefaultRefreshInterval = 60 * time.Second

// Refresher periodically fetches the price and caches the latest successful
// value. Latest never blocks; a failed fetch keeps the previous value.
// The cached cell is single-writer (the Run loop), multi-reader.
type Refresher struct {
	quoter   Quoter
	interval time.Duration
	logger   *log.Logger

	// bits holds math.Float64bits of the latest price; hasPrice flips once
	// the first successful quote lands.
	bits     atomic.Uint64
	hasPrice atomic.Bool
}

// NewRefresher creates a refresher around quoter. A zero interval selects
// DefaultRefreshInterval.
func NewRefresher(quoter Quoter, interval time.Duration, logger *log.Logger) *Refresher {
	if interval == 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Refresher{
		quoter:   quoter,
		interval: interval,
		logger:   logger,
	}
}

// Latest returns the most recently cached price. ok is false until the
// first successful quote.
func (r *Refresher) Latest() (float64, bool) {
	if !r.hasPrice.Load() {
		return 0, false
	}
	return math.Float64frombits(r.bits.Load()), true
}

// Run fetches immediately and then on every interval tick until ctx is
// cancelled. Quote failures are logged and skipped.
func (r *Refresher) Run(ctx context.Context) error {
	r.refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	usd, err := r.quoter.QuoteUSD(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Printf("price refresh failed: %v", err)
		}
		return
	}
	r.bits.Store(math.Float64bits(usd))
	r.hasPrice.Store(true)
	observability.SetPriceUSD(usd)
}
