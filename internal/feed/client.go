// Package feed maintains the persistent WebSocket connection to the
// blockchain.info inv feed and decodes inbound messages into domain events.
package feed

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Dairus01/bitcoin-whales/internal/domain"
	"github.com/Dairus01/bitcoin-whales/internal/observability"
)

// DefaultEndpoint is the public blockchain.info inv feed.
const DefaultEndpoint = "wss://ws.blockchain.info/inv"

// subscribeOps are sent, in order, after every successful connect.
var subscribeOps = []string{"unconfirmed_sub", "blocks_sub", "ping"}

// Handler receives decoded feed events. Calls are made synchronously from
// the read loop, so a slow handler delays message consumption.
type Handler interface {
	HandleTransaction(tx *domain.Transaction)
	HandleBlock(b *domain.Block)
}

// Backoff decides how long to wait before the next reconnect attempt.
type Backoff interface {
	Next() time.Duration
}

// FixedBackoff waits the same delay before every reconnect. The feed is
// assumed eventually reachable, so retries are unbounded and the delay
// never grows.
type FixedBackoff struct {
	Delay time.Duration
}

// Next implements Backoff.
func (b FixedBackoff) Next() time.Duration {
	return b.Delay
}

// Config configures the feed client.
type Config struct {
	// Endpoint is the WebSocket URL. Defaults to DefaultEndpoint.
	Endpoint string
	// Backoff is the reconnect delay policy. Defaults to FixedBackoff{5s}.
	Backoff Backoff
	// PingInterval is the interval for keepalive ping frames.
	PingInterval time.Duration
	// PongTimeout is how long after a ping a pong must arrive.
	PongTimeout time.Duration
	// WriteTimeout bounds subscription and ping writes.
	WriteTimeout time.Duration
	// HandshakeTimeout bounds the dial.
	HandshakeTimeout time.Duration
	// Logger for connection lifecycle messages. Defaults to log.Default().
	Logger *log.Logger
}

// DefaultConfig returns the stock connection behavior: 5s fixed reconnect
// delay, 30s ping interval, 10s pong timeout.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		Backoff:          FixedBackoff{Delay: 5 * time.Second},
		PingInterval:     30 * time.Second,
		PongTimeout:      10 * time.Second,
		WriteTimeout:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// connState is the connection lifecycle state.
type connState int

const (
	stateConnecting connState = iota
	stateSubscribed
	stateBackoff
)

// Client maintains one logical connection to the upstream feed and routes
// decoded messages to its handler. Any connection or protocol error sends
// the client through Backoff and back to Connecting, indefinitely, until
// the context is cancelled.
type Client struct {
	cfg     Config
	handler Handler
	logger  *log.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	connected atomic.Bool
}

// NewClient creates a feed client delivering events to handler.
func NewClient(cfg Config, handler Handler) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Backoff == nil {
		cfg.Backoff = def.Backoff
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout == 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
	}
}

// Connected reports whether a connection is currently established and
// subscribed. Used for liveness reporting.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Run drives the Connecting → Subscribed → Backoff state machine until ctx
// is cancelled. It always returns ctx.Err(); no connection failure is fatal.
func (c *Client) Run(ctx context.Context) error {
	state := stateConnecting

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch state {
		case stateConnecting:
			conn, err := c.dial(ctx)
			if err != nil {
				c.logger.Printf("dial %s: %v", c.cfg.Endpoint, err)
				state = stateBackoff
				continue
			}
			if err := c.subscribe(conn); err != nil {
				c.logger.Printf("subscribe: %v", err)
				conn.Close()
				state = stateBackoff
				continue
			}
			c.setConn(conn)
			c.connected.Store(true)
			c.logger.Printf("connected to %s", c.cfg.Endpoint)
			state = stateSubscribed

		case stateSubscribed:
			err := c.readLoop(ctx)
			c.connected.Store(false)
			c.closeConn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Printf("connection lost: %v", err)
			observability.RecordFeedReconnect()
			state = stateBackoff

		case stateBackoff:
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.Backoff.Next()):
			}
			state = stateConnecting
		}
	}
}

// dial establishes the WebSocket connection.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.cfg.Endpoint, nil)
	return conn, err
}

// subscribe issues the transaction, block and heartbeat requests.
func (c *Client) subscribe(conn *websocket.Conn) error {
	for _, op := range subscribeOps {
		conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
		if err := conn.WriteJSON(opRequest{Op: op}); err != nil {
			return err
		}
	}
	return nil
}

// readLoop reads and routes messages until the connection errors or ctx is
// cancelled. A ping ticker keeps the connection alive; a missed pong lets
// the read deadline expire, which surfaces as a read error.
func (c *Client) readLoop(ctx context.Context) error {
	conn := c.currentConn()

	deadline := c.cfg.PingInterval + c.cfg.PongTimeout
	conn.SetReadDeadline(time.Now().Add(deadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	done := make(chan struct{})
	defer close(done)

	// Close the connection on cancellation to unblock the read.
	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Unblock the reader now rather than waiting out its
					// read deadline.
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// handleMessage decodes one inbound message and routes it by op.
// Unparseable messages are dropped; unknown ops pass through silently for
// forward compatibility.
func (c *Client) handleMessage(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		observability.RecordDecodeError()
		return
	}

	switch env.Op {
	case "utx":
		tx, ok := decodeTransaction(env.X)
		if !ok {
			observability.RecordDecodeError()
			return
		}
		c.handler.HandleTransaction(tx)
	case "block":
		b, ok := decodeBlock(env.X)
		if !ok {
			observability.RecordDecodeError()
			return
		}
		c.handler.HandleBlock(b)
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()
}
