// Package realtime maintains the persistent connection to the chat backend.
// A Conn owns one logical session: it dials, reads frames, heartbeats, and
// reconnects with backoff until it is explicitly closed. Callers interact
// only through Connect/Send/Close and the subscription methods; transport
// failures never surface as errors, only as observable state transitions.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/M3kH/gigi-sub006/internal/domain"
)

// Defaults applied by NewConn when the corresponding Config field is zero.
var (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultDialTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 5 * time.Second

	// DefaultBackoff is the reconnect ladder. Once the attempt counter runs
	// off the end, the final delay repeats indefinitely.
	DefaultBackoff = []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}
)

// Config holds the tunables of a single connection.
type Config struct {
	URL               string
	HeartbeatInterval time.Duration
	DialTimeout       time.Duration
	WriteTimeout      time.Duration
	Backoff           []time.Duration
}

func (c *Config) applyDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if len(c.Backoff) == 0 {
		c.Backoff = DefaultBackoff
	}
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// Conn manages one connection to the backend. Construct with NewConn;
// multiple independent Conns may coexist.
type Conn struct {
	cfg    Config
	dial   Dialer
	logger *slog.Logger

	mu             sync.Mutex
	state          State
	transport      Transport
	attempts       int
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	closed         bool
	gen            uint64 // session generation, bumped on every dial and on Close

	nextSubID uint64
	msgSubs   []subscription[domain.ServerMessage]
	stateSubs []subscription[State]
}

// NewConn creates a connection manager. It does not dial; call Connect.
func NewConn(cfg Config, dial Dialer, logger *slog.Logger) *Conn {
	cfg.applyDefaults()
	if dial == nil {
		dial = WebSocketDialer
	}
	return &Conn{
		cfg:    cfg,
		dial:   dial,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnMessage registers a listener for decoded inbound messages. Listeners run
// synchronously on the read goroutine in registration order, so a listener
// sees events exactly in transport delivery order. The returned func
// unsubscribes.
func (c *Conn) OnMessage(fn func(domain.ServerMessage)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.msgSubs = append(c.msgSubs, subscription[domain.ServerMessage]{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.msgSubs {
			if s.id == id {
				c.msgSubs = append(c.msgSubs[:i], c.msgSubs[i+1:]...)
				return
			}
		}
	}
}

// OnStateChange registers a listener for state transitions. Same ordering
// contract as OnMessage.
func (c *Conn) OnStateChange(fn func(State)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSubID++
	id := c.nextSubID
	c.stateSubs = append(c.stateSubs, subscription[State]{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.stateSubs {
			if s.id == id {
				c.stateSubs = append(c.stateSubs[:i], c.stateSubs[i+1:]...)
				return
			}
		}
	}
}

// Connect starts dialing. It is idempotent: a no-op while a dial is in
// flight or the connection is established, and permanently inert after
// Close. The first attempt reports StateConnecting; retries after a failure
// report StateReconnecting.
func (c *Conn) Connect() {
	c.mu.Lock()
	if c.closed || c.state == StateConnecting || c.state == StateReconnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	next := StateConnecting
	if c.attempts > 0 {
		next = StateReconnecting
	}
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.setState(next)
	go c.dialSession(gen)
}

func (c *Conn) dialSession(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	transport, err := c.dial(ctx, c.cfg.URL)
	cancel()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		if err == nil {
			transport.Close()
		}
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("dial failed", "url", c.cfg.URL, "error", err)
		c.setState(StateDisconnected)
		c.scheduleReconnect()
		return
	}

	c.transport = transport
	c.attempts = 0
	stop := make(chan struct{})
	c.heartbeatStop = stop
	c.mu.Unlock()

	c.logger.Info("connected", "url", c.cfg.URL)
	c.setState(StateConnected)

	go c.heartbeatLoop(stop)
	go c.readLoop(transport, gen)
}

// readLoop delivers decoded frames to listeners until the transport fails,
// then tears the session down. Exactly one readLoop runs per session
// generation, so the subsequent close schedules at most one reconnect.
func (c *Conn) readLoop(transport Transport, gen uint64) {
	for {
		data, err := transport.Read(context.Background())
		if err != nil {
			c.sessionClosed(gen, err)
			return
		}
		msg, err := domain.DecodeServerMessage(data)
		if err != nil {
			// Malformed frames are dropped; the connection stays up.
			c.logger.Warn("dropped inbound frame", "error", err)
			continue
		}
		for _, sub := range c.messageSubs() {
			sub.fn(msg)
		}
	}
}

func (c *Conn) sessionClosed(gen uint64, cause error) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.mu.Unlock()

	c.logger.Warn("connection lost", "error", cause)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

// scheduleReconnect arms a single reconnect timer using the backoff ladder.
// A pending timer suppresses scheduling another.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	if c.closed || c.reconnectTimer != nil {
		c.mu.Unlock()
		return
	}
	delay := backoffDelay(c.cfg.Backoff, c.attempts)
	c.attempts++
	attempt := c.attempts
	c.reconnectTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		c.mu.Unlock()
		c.Connect()
	})
	c.mu.Unlock()

	c.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
}

// backoffDelay indexes the ladder by attempt count, reusing the final rung
// once the counter runs past the end.
func backoffDelay(ladder []time.Duration, attempt int) time.Duration {
	if attempt >= len(ladder) {
		attempt = len(ladder) - 1
	}
	return ladder[attempt]
}

func (c *Conn) heartbeatLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Send(domain.HeartbeatPing{})
		}
	}
}

// Send serializes and transmits a message if and only if the connection is
// established. Anything else is a silent no-op: there is no send queue and
// no delivery guarantee across disconnects. Callers that need reliability
// re-issue after observing StateConnected again.
func (c *Conn) Send(msg domain.ClientMessage) {
	c.mu.Lock()
	transport := c.transport
	ok := c.state == StateConnected && transport != nil
	c.mu.Unlock()
	if !ok {
		return
	}

	data, err := domain.EncodeClientMessage(msg)
	if err != nil {
		c.logger.Error("encode outbound message", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.WriteTimeout)
	defer cancel()
	if err := transport.Write(ctx, data); err != nil {
		c.logger.Warn("send failed", "error", err)
	}
}

// Close shuts the connection down for good: it cancels the pending reconnect
// and the heartbeat, closes the transport, and leaves Connect permanently
// inert. Idempotent. A new session requires a new Conn.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++ // invalidates any in-flight dial
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
	transport := c.transport
	c.transport = nil
	c.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	c.setState(StateDisconnected)
	c.logger.Info("connection closed")
}

func (c *Conn) messageSubs() []subscription[domain.ServerMessage] {
	c.mu.Lock()
	defer c.mu.Unlock()
	subs := make([]subscription[domain.ServerMessage], len(c.msgSubs))
	copy(subs, c.msgSubs)
	return subs
}

// setState records the transition and notifies listeners outside the lock.
// Listeners must not assume they run on any particular goroutine, only that
// transitions arrive in order.
func (c *Conn) setState(next State) {
	c.mu.Lock()
	if c.state == next || (c.closed && next != StateDisconnected) {
		c.mu.Unlock()
		return
	}
	c.state = next
	subs := make([]subscription[State], len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
}
