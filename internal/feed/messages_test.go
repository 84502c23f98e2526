package feed

import (
	"encoding/json"
	"testing"
)

func TestDecodeTransaction(t *testing.T) {
	raw := json.RawMessage(`{
		"hash": "abc123",
		"time": 1700000000,
		"out": [
			{"value": 5000000000, "addr": "1FirstAddr"},
			{"value": 250000000, "addr": "1SecondAddr"}
		]
	}`)

	tx, ok := decodeTransaction(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if tx.Hash != "abc123" {
		t.Errorf("hash: expected abc123, got %s", tx.Hash)
	}
	if tx.Time != 1700000000 {
		t.Errorf("time: expected 1700000000, got %d", tx.Time)
	}
	if len(tx.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(tx.Outputs))
	}
	if got := tx.TotalSat(); got != 5250000000 {
		t.Errorf("total: expected 5250000000, got %d", got)
	}
	if got := tx.FirstAddress(); got != "1FirstAddr" {
		t.Errorf("first address: expected 1FirstAddr, got %s", got)
	}
}

func TestDecodeTransaction_SkipsUnparseableOutputs(t *testing.T) {
	// First output value is garbage; the transaction is still processed
	// with the remaining output (5.0 BTC at 1e8 sat scale).
	raw := json.RawMessage(`{
		"hash": "abc",
		"time": 1,
		"out": [
			{"value": "x"},
			{"value": 500000000}
		]
	}`)

	tx, ok := decodeTransaction(raw)
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if len(tx.Outputs) != 1 {
		t.Fatalf("expected 1 output after skipping garbage, got %d", len(tx.Outputs))
	}
	if got := tx.TotalSat(); got != 500000000 {
		t.Errorf("total: expected 500000000, got %d", got)
	}
}

func TestDecodeTransaction_NoOutputs(t *testing.T) {
	tx, ok := decodeTransaction(json.RawMessage(`{"hash": "h", "time": 1, "out": []}`))
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if tx.FirstAddress() != "" {
		t.Errorf("expected empty first address, got %q", tx.FirstAddress())
	}
	if tx.TotalSat() != 0 {
		t.Errorf("expected zero total, got %d", tx.TotalSat())
	}
}

func TestDecodeBlock(t *testing.T) {
	b, ok := decodeBlock(json.RawMessage(`{"height": 820000, "nTx": 3124}`))
	if !ok {
		t.Fatal("expected decode to succeed")
	}
	if b.Height == nil || *b.Height != 820000 {
		t.Errorf("height: expected 820000, got %v", b.Height)
	}
	if b.TxCount == nil || *b.TxCount != 3124 {
		t.Errorf("nTx: expected 3124, got %v", b.TxCount)
	}

	// Both fields are optional upstream.
	b, ok = decodeBlock(json.RawMessage(`{}`))
	if !ok {
		t.Fatal("expected decode of empty payload to succeed")
	}
	if b.Height != nil || b.TxCount != nil {
		t.Error("expected nil height and nTx for empty payload")
	}
}

func TestParseSat(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   int64
		wantOK bool
	}{
		{"number", `500000000`, 500000000, true},
		{"quoted number", `"12345"`, 12345, true},
		{"zero", `0`, 0, true},
		{"negative", `-1`, 0, false},
		{"garbage string", `"x"`, 0, false},
		{"float", `1.5`, 0, false},
		{"null", `null`, 0, false},
		{"empty", ``, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSat(json.RawMessage(tt.raw))
			if ok != tt.wantOK {
				t.Fatalf("ok: expected %v, got %v", tt.wantOK, ok)
			}
			if got != tt.want {
				t.Errorf("value: expected %d, got %d", tt.want, got)
			}
		})
	}
}
