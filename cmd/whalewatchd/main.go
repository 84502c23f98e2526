// Package main runs the whale watch service: the blockchain.info feed
// connection, the aggregation core, and the HTTP surface that streams
// derived events to subscribers.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Dairus01/bitcoin-whales/internal/bus"
	"github.com/Dairus01/bitcoin-whales/internal/feed"
	"github.com/Dairus01/bitcoin-whales/internal/server"
	"github.com/Dairus01/bitcoin-whales/internal/watch"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	wsEndpoint := flag.String("ws-endpoint", envString("WS_ENDPOINT", feed.DefaultEndpoint), "Upstream WebSocket feed endpoint")
	threshold := flag.Float64("threshold", envFloat("WHALE_THRESHOLD", watch.DefaultThresholdBTC), "Whale threshold in BTC")
	interval := flag.Int64("interval", envInt("SUMMARY_INTERVAL", watch.DefaultIntervalSec), "Summary interval in seconds")
	httpAddr := flag.String("http-addr", envString("HTTP_ADDR", ":5000"), "HTTP listen address")
	priceRefresh := flag.Duration("price-refresh", 60*time.Second, "Price refresh interval")
	queueSize := flag.Int("queue-size", bus.DefaultCapacity, "Per-subscriber event queue capacity")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[whalewatchd] ", log.LstdFlags)

	if *threshold <= 0 {
		logger.Fatal("--threshold must be positive")
	}
	if *interval <= 0 {
		logger.Fatal("--interval must be positive")
	}

	eventBus := bus.New(*queueSize)

	watcher := watch.New(watch.Options{
		FeedConfig:   feed.Config{Endpoint: *wsEndpoint, Logger: log.New(os.Stdout, "[feed] ", log.LstdFlags)},
		PriceRefresh: *priceRefresh,
		Bus:          eventBus,
		ThresholdBTC: *threshold,
		IntervalSec:  *interval,
		Logger:       logger,
	})

	watcher.Start()
	logger.Printf("watching %s (threshold: %.2f BTC, interval: %ds)", *wsEndpoint, *threshold, *interval)

	srv := server.New(watcher, eventBus, log.New(os.Stdout, "[server] ", log.LstdFlags))
	httpSrv := &http.Server{Addr: *httpAddr, Handler: srv.Handler()}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	shutdownDone := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		awaitShutdown(func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				logger.Printf("HTTP shutdown: %v", err)
			}
			watcher.Stop()
		}, sigCh, shutdownGrace, logger, os.Exit)
		close(shutdownDone)
	}()

	logger.Printf("Starting HTTP server on %s", *httpAddr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	<-shutdownDone
	logger.Println("Shutdown complete")
}

// shutdownGrace bounds how long a first signal waits for a clean stop.
const shutdownGrace = 10 * time.Second

// awaitShutdown runs stop and returns once it completes. A second signal or
// an expired grace period forces an immediate exit instead.
func awaitShutdown(stop func(), sigCh <-chan os.Signal, grace time.Duration, logger *log.Logger, exit func(int)) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		stop()
	}()

	select {
	case <-done:
		// Normal shutdown completed
	case sig := <-sigCh:
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		exit(1)
	case <-time.After(grace):
		logger.Printf("Graceful shutdown timed out after %v, forcing exit", grace)
		exit(1)
	}
}

// envString returns the env value or fallback when unset.
func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envFloat returns the env value parsed as float64 or fallback.
func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envInt returns the env value parsed as int64 or fallback.
func envInt(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
