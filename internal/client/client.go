// Package client holds the per-connection state: identity, protocol state,
// outbound queue and violation accounting. All mutable fields are owned by
// the hub goroutine; only the outbound queue crosses goroutines.
package client

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/michroucka/UPS-SP/internal/transport"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

// OutboundQueueSize bounds the per-connection write queue. A peer that lets
// this many messages pile up is treated like one that overflowed its read
// buffer and is disconnected.
const OutboundQueueSize = 256

// ErrOutboundFull is reported when a message cannot be queued.
var ErrOutboundFull = errors.New("client: outbound queue full")

// NoRoom marks a client that is not seated anywhere.
const NoRoom = -1

// Client is one live peer.
type Client struct {
	ID   uint64
	Addr string

	// Hub-owned state. Never touched off the hub goroutine.
	Nickname     string
	SessionToken string
	State        proto.ClientState
	RoomID       int
	Strikes      int
	LastActivity time.Time

	conn      transport.Conn
	out       chan string
	closed    chan struct{}
	closeOnce sync.Once
	overflow  atomic.Bool
}

// New wraps a transport connection. The write loop starts immediately; the
// caller runs the read loop.
func New(id uint64, conn transport.Conn) *Client {
	c := &Client{
		ID:           id,
		Addr:         conn.RemoteAddr(),
		State:        proto.StateConnected,
		RoomID:       NoRoom,
		LastActivity: time.Now(),
		conn:         conn,
		out:          make(chan string, OutboundQueueSize),
		closed:       make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// Queue builds a protocol message and enqueues it without blocking. On a
// full queue the message is dropped and the client is flagged for
// disconnection by the hub sweep.
func (c *Client) Queue(fields ...string) error {
	select {
	case c.out <- proto.Build(fields...):
		return nil
	default:
		c.overflow.Store(true)
		return ErrOutboundFull
	}
}

// OutboundOverflowed reports whether a Queue call has ever been dropped.
func (c *Client) OutboundOverflowed() bool {
	return c.overflow.Load()
}

// ReadLine blocks for the next inbound message. Called only by this client's
// read loop.
func (c *Client) ReadLine() (string, error) {
	return c.conn.ReadLine()
}

// Close shuts the connection down. Queued outbound messages (e.g. a final
// ERROR) are flushed first. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Client) writeLoop() {
	for {
		select {
		case line := <-c.out:
			if err := c.conn.WriteLine(line); err != nil {
				_ = c.conn.Close()
				return
			}
		case <-c.closed:
			c.drainAndClose()
			return
		}
	}
}

func (c *Client) drainAndClose() {
	for {
		select {
		case line := <-c.out:
			if err := c.conn.WriteLine(line); err != nil {
				_ = c.conn.Close()
				return
			}
		default:
			_ = c.conn.Close()
			return
		}
	}
}

// Touch refreshes the liveness timestamp.
func (c *Client) Touch() {
	c.LastActivity = time.Now()
}

// IdleFor reports whether the client has been silent longer than d.
func (c *Client) IdleFor(d time.Duration) bool {
	return time.Since(c.LastActivity) > d
}

// AddStrike increments the invalid-message counter and reports whether the
// strike limit has been reached.
func (c *Client) AddStrike() bool {
	c.Strikes++
	return c.Strikes >= proto.MaxInvalidMessages
}
