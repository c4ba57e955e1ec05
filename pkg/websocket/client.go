// Package websocket wraps gorilla/websocket with a supervised connection
// loop: dial, pump messages, and redial after a fixed backoff until stopped.
package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"botfarm/internal/core"
	"botfarm/pkg/telemetry"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// MessageHandler receives every raw frame read from the connection.
type MessageHandler func(message []byte)

// Client maintains a single WebSocket connection and transparently
// re-establishes it when it drops. Callbacks let the owner resubscribe
// on connect and react to drops before the redial starts.
type Client struct {
	url     string
	handler MessageHandler

	mu             sync.Mutex
	conn           *websocket.Conn
	retryWait      time.Duration
	pingInterval   time.Duration
	pingDeadline   time.Duration
	pongWait       time.Duration
	onConnected    func()
	onDisconnected func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger core.ILogger

	tracer      trace.Tracer
	msgCounter  metric.Int64Counter
	connCounter metric.Int64Counter
}

// NewClient builds a client for the given endpoint. The connection is not
// opened until Start is called.
func NewClient(url string, handler MessageHandler, logger core.ILogger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	meter := telemetry.GetMeter("ws-client")
	msgCounter, _ := meter.Int64Counter("ws_messages_total",
		metric.WithDescription("Total number of WebSocket messages received"))
	connCounter, _ := meter.Int64Counter("ws_connections_total",
		metric.WithDescription("Total number of WebSocket connections initiated"))

	return &Client{
		url:          url,
		handler:      handler,
		retryWait:    5 * time.Second,
		pingInterval: 30 * time.Second,
		pingDeadline: 10 * time.Second,
		pongWait:     60 * time.Second,
		ctx:          ctx,
		cancel:       cancel,
		logger:       logger,
		tracer:       telemetry.GetTracer("ws-client"),
		msgCounter:   msgCounter,
		connCounter:  connCounter,
	}
}

// SetPingConfig adjusts the keepalive timings: how often pings go out, how
// long a ping write may take, and how long to wait for a pong before the
// read deadline expires.
func (c *Client) SetPingConfig(interval, writeDeadline, pongWait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingInterval = interval
	c.pingDeadline = writeDeadline
	c.pongWait = pongWait
}

// SetReconnectWait changes the pause between redial attempts.
func (c *Client) SetReconnectWait(wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryWait = wait
}

// SetOnConnected registers a callback invoked after every successful dial,
// before the read loop starts. Use it to resubscribe.
func (c *Client) SetOnConnected(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnected = cb
}

// SetOnDisconnected registers a callback invoked each time an established
// connection is lost, before any redial.
func (c *Client) SetOnDisconnected(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnected = cb
}

// Send writes a JSON message to the current connection.
func (c *Client) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	return c.conn.WriteJSON(message)
}

// Start launches the supervision loop in the background.
func (c *Client) Start() {
	c.wg.Add(1)
	go c.supervise()
}

// Stop tears the connection down and waits briefly for the loops to exit.
func (c *Client) Stop() {
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		if c.logger != nil {
			c.logger.Warn("WebSocket client Stop: some goroutines did not exit within timeout")
		}
	}

	c.closeConn()
}

// supervise dials, serves the connection until it drops, then sleeps and
// dials again, forever, until the client context is cancelled.
func (c *Client) supervise() {
	defer c.wg.Done()

	for c.ctx.Err() == nil {
		conn, err := c.dial()
		if err != nil {
			if c.logger != nil {
				c.logger.Error("WebSocket connect failed", "url", c.url, "error", err)
			}
			if !c.sleep() {
				return
			}
			continue
		}

		c.serve(conn)

		if !c.sleep() {
			return
		}
	}
}

// sleep pauses for the retry interval; it reports false when the client
// was stopped during the pause.
func (c *Client) sleep() bool {
	c.mu.Lock()
	wait := c.retryWait
	c.mu.Unlock()

	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

// serve runs one connection's lifetime: fires onConnected, starts the
// keepalive, pumps messages until the read fails, then fires onDisconnected.
func (c *Client) serve(conn *websocket.Conn) {
	c.mu.Lock()
	onConnected := c.onConnected
	onDisconnected := c.onDisconnected
	pingEnabled := c.pingInterval > 0
	c.mu.Unlock()

	if onConnected != nil {
		onConnected()
	}

	keepaliveCtx, stopKeepalive := context.WithCancel(c.ctx)
	if pingEnabled {
		c.wg.Add(1)
		go c.keepalive(keepaliveCtx, conn)
	}

	c.pump(conn)
	stopKeepalive()

	if onDisconnected != nil {
		onDisconnected()
	}
}

func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()

	c.mu.Lock()
	interval := c.pingInterval
	deadline := c.pingDeadline
	c.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(deadline)); err != nil {
				// A failed ping means the peer is gone; close so the read
				// loop unblocks and the supervisor redials.
				c.closeConn()
				return
			}
		}
	}
}

func (c *Client) dial() (*websocket.Conn, error) {
	ctx, span := c.tracer.Start(c.ctx, "WS Connect",
		trace.WithAttributes(attribute.String("ws.url", c.url)),
	)
	defer span.End()

	c.connCounter.Add(ctx, 1)

	c.mu.Lock()
	pongWait := c.pongWait
	c.mu.Unlock()

	// Dial without the lock so Send and the setters stay responsive
	// during a slow handshake.
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return conn, nil
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) pump(conn *websocket.Conn) {
	defer c.closeConn()

	for c.ctx.Err() == nil {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		c.msgCounter.Add(c.ctx, 1)

		if c.handler != nil {
			c.handler(message)
		}
	}
}
