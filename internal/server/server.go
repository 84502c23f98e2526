// Package server exposes the HTTP surface: the SSE and WebSocket event
// streams, the live configuration endpoint, and health/status/metrics.
package server

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/bus"
	"github.com/Dairus01/bitcoin-whales/internal/domain"
	"github.com/Dairus01/bitcoin-whales/internal/observability"
	"github.com/Dairus01/bitcoin-whales/internal/watch"
)

// Server wires the watcher and bus into HTTP handlers.
type Server struct {
	watcher *watch.Watcher
	bus     *bus.Bus
	logger  *log.Logger
}

// New creates a server for the given watcher and bus.
func New(watcher *watch.Watcher, b *bus.Bus, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		watcher: watcher,
		bus:     b,
		logger:  logger,
	}
}

// Handler returns the HTTP mux for all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// configRequest keeps both fields raw so each one is parsed independently:
// a malformed threshold never rejects a valid interval in the same request.
type configRequest struct {
	Threshold json.RawMessage `json:"threshold"`
	Interval  json.RawMessage `json:"interval"`
}

// configResponse mirrors the now-effective configuration.
type configResponse struct {
	Status    string  `json:"status,omitempty"`
	Threshold float64 `json:"threshold"`
	Interval  int64   `json:"interval"`
}

// handleConfig serves GET (current values) and POST (partial update).
// Each POST field is independently optional; unparseable values are
// ignored rather than rejected.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		threshold, interval := s.watcher.Config()
		writeJSON(w, http.StatusOK, configResponse{Threshold: threshold, Interval: interval})

	case http.MethodPost:
		thresholdVal, intervalVal := s.parseConfigUpdate(r)
		threshold, interval := s.watcher.UpdateConfig(thresholdVal, intervalVal)

		// Mirror the change to all subscribers.
		s.bus.Publish(&domain.ConfigEvent{ThresholdBTC: threshold, IntervalSec: interval})
		observability.RecordEventPublished(domain.KindConfig.String())

		writeJSON(w, http.StatusOK, configResponse{Status: "ok", Threshold: threshold, Interval: interval})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// parseConfigUpdate extracts optional threshold/interval values from a JSON
// body or form data. Unparseable fields are dropped, not rejected.
func (s *Server) parseConfigUpdate(r *http.Request) (*float64, *int64) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil
	}

	var req configRequest
	if err := json.Unmarshal(body, &req); err == nil {
		return parseOptionalFloat(req.Threshold), parseOptionalInt(req.Interval)
	}

	// Not JSON; fall back to form fields.
	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, nil
	}
	var thresholdVal *float64
	var intervalVal *int64
	if f, err := strconv.ParseFloat(form.Get("threshold"), 64); err == nil {
		thresholdVal = &f
	}
	if n, err := strconv.ParseInt(form.Get("interval"), 10, 64); err == nil {
		intervalVal = &n
	}
	return thresholdVal, intervalVal
}

// parseOptionalFloat parses a raw JSON value as a float, accepting bare
// numbers and quoted numeric strings. Absent or malformed values yield nil.
func parseOptionalFloat(raw json.RawMessage) *float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseOptionalInt is parseOptionalFloat for integer fields.
func parseOptionalInt(raw json.RawMessage) *int64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// healthResponse is the JSON response for /health.
type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "degraded"
	if s.watcher.IsRunning() {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    status,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status      string  `json:"status"`
	Uptime      string  `json:"uptime"`
	Connected   bool    `json:"connected"`
	Subscribers int     `json:"subscribers"`
	Threshold   float64 `json:"threshold"`
	Interval    int64   `json:"interval"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	threshold, interval := s.watcher.Config()

	status := "stopped"
	uptime := ""
	if s.watcher.IsRunning() {
		status = "running"
		uptime = time.Since(s.watcher.StartedAt()).String()
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      status,
		Uptime:      uptime,
		Connected:   s.watcher.Connected(),
		Subscribers: s.bus.Len(),
		Threshold:   threshold,
		Interval:    interval,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
