package domain

// Output is a single transaction output with a parsed value.
type Output struct {
	Value   int64  // output value in satoshis
	Address string // destination address, may be empty
}

// Transaction represents a decoded unconfirmed transaction from the feed.
// It is ephemeral: consumed once by the aggregator and never stored.
type Transaction struct {
	Hash    string   // transaction hash
	Time    int64    // upstream Unix timestamp
	Outputs []Output // parseable outputs only; malformed ones are dropped at decode
}

// TotalSat returns the summed output value in satoshis.
func (t *Transaction) TotalSat() int64 {
	var total int64
	for _, out := range t.Outputs {
		total += out.Value
	}
	return total
}

// FirstAddress returns the address of the first output, or empty when the
// transaction has no outputs.
func (t *Transaction) FirstAddress() string {
	if len(t.Outputs) == 0 {
		return ""
	}
	return t.Outputs[0].Address
}

// Block represents a decoded new-block notification. Height and TxCount are
// optional upstream fields.
type Block struct {
	Height  *int64
	TxCount *int64
}
