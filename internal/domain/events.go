// Package domain defines the event variants and raw feed records shared by
// the feed, aggregation, and fan-out layers.
package domain

// Kind identifies an event variant.
type Kind string

const (
	KindWhale   Kind = "whale"
	KindSummary Kind = "summary"
	KindBlock   Kind = "block"
	KindConfig  Kind = "config"
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	return string(k)
}

// Event is the closed set of derived events delivered to subscribers.
// Exactly four variants exist: WhaleEvent, SummaryEvent, BlockEvent and
// ConfigEvent.
type Event interface {
	Kind() Kind
}

// WhaleEvent is emitted when a transaction's total output value meets or
// exceeds the configured threshold at the moment it is processed.
type WhaleEvent struct {
	Hash      string  `json:"hash"`
	ValueBTC  float64 `json:"value_btc"`
	ValueUSD  float64 `json:"value_usd"` // 0 when no price is cached yet
	Timestamp int64   `json:"timestamp"` // upstream transaction time
	Address   string  `json:"address,omitempty"`
}

// Kind implements Event.
func (*WhaleEvent) Kind() Kind { return KindWhale }

// SummaryEvent is the periodic aggregate over one summary interval.
// Never emitted for an empty interval.
type SummaryEvent struct {
	Count     int64   `json:"count"`
	TotalBTC  float64 `json:"total_btc"`
	AvgBTC    float64 `json:"avg_btc"`
	TotalUSD  float64 `json:"total_usd"`
	AvgUSD    float64 `json:"avg_usd"`
	Whales    int64   `json:"whales"`
	Timestamp int64   `json:"timestamp"` // emission time
}

// Kind implements Event.
func (*SummaryEvent) Kind() Kind { return KindSummary }

// BlockEvent is emitted for every observed block. Timestamp is the local
// observation time, not the upstream block time.
type BlockEvent struct {
	Height    *int64 `json:"height,omitempty"`
	TxCount   *int64 `json:"n_tx,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Kind implements Event.
func (*BlockEvent) Kind() Kind { return KindBlock }

// ConfigEvent mirrors a configuration change to subscribers.
type ConfigEvent struct {
	ThresholdBTC float64 `json:"threshold"`
	IntervalSec  int64   `json:"interval"`
}

// Kind implements Event.
func (*ConfigEvent) Kind() Kind { return KindConfig }
