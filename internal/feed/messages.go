package feed

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Dairus01/bitcoin-whales/internal/domain"
)

// Feed message types (blockchain.info inv protocol)

// envelope is the outer structure of every inbound message.
// Op routes the message; X carries the operation-specific payload.
type envelope struct {
	Op string          `json:"op"`
	X  json.RawMessage `json:"x"`
}

// opRequest is the outbound subscription/heartbeat request.
type opRequest struct {
	Op string `json:"op"`
}

type txPayload struct {
	Hash string     `json:"hash"`
	Time int64      `json:"time"`
	Out  []txOutput `json:"out"`
}

type txOutput struct {
	// Value is kept raw: the feed usually sends a number but has been
	// observed sending strings. parseSat applies the lenient parse.
	Value json.RawMessage `json:"value"`
	Addr  string          `json:"addr"`
}

type blockPayload struct {
	Height *int64 `json:"height"`
	NTx    *int64 `json:"nTx"`
}

// decodeTransaction converts a utx payload into a domain transaction.
// Outputs whose value is not a non-negative integer are dropped; the
// transaction itself is still valid with the remaining outputs.
func decodeTransaction(raw json.RawMessage) (*domain.Transaction, bool) {
	var p txPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}

	tx := &domain.Transaction{
		Hash: p.Hash,
		Time: p.Time,
	}
	for _, out := range p.Out {
		sat, ok := parseSat(out.Value)
		if !ok {
			continue
		}
		tx.Outputs = append(tx.Outputs, domain.Output{Value: sat, Address: out.Addr})
	}
	return tx, true
}

// decodeBlock converts a block payload into a domain block.
func decodeBlock(raw json.RawMessage) (*domain.Block, bool) {
	var p blockPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &domain.Block{Height: p.Height, TxCount: p.NTx}, true
}

// parseSat parses an output value as a non-negative integer satoshi amount.
// Accepts bare JSON numbers and quoted numeric strings; anything else is
// rejected so the caller can skip the output.
func parseSat(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, false
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
