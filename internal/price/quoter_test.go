package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCoinGeckoQuoter_QuoteUSD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bitcoin":{"usd":65432.1}}`))
	}))
	defer server.Close()

	q := NewCoinGeckoQuoter(server.URL)
	usd, err := q.QuoteUSD(context.Background())
	if err != nil {
		t.Fatalf("QuoteUSD: %v", err)
	}
	if usd != 65432.1 {
		t.Errorf("expected 65432.1, got %v", usd)
	}
}

func TestCoinGeckoQuoter_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	q := NewCoinGeckoQuoter(server.URL)
	if _, err := q.QuoteUSD(context.Background()); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestCoinGeckoQuoter_MissingField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	q := NewCoinGeckoQuoter(server.URL)
	if _, err := q.QuoteUSD(context.Background()); err == nil {
		t.Fatal("expected error for missing bitcoin.usd")
	}
}

func TestCoinGeckoQuoter_GarbageBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	q := NewCoinGeckoQuoter(server.URL)
	if _, err := q.QuoteUSD(context.Background()); err == nil {
		t.Fatal("expected error for unparseable body")
	}
}
