// Package hub owns every mutable server table: connected clients, nickname
// claims, rooms and recoverable sessions. All of them are touched only from
// the single Run goroutine; connections talk to it through channels.
package hub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/internal/room"
	"github.com/michroucka/UPS-SP/internal/session"
	"github.com/michroucka/UPS-SP/internal/statelog"
	"github.com/michroucka/UPS-SP/internal/transport"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

var (
	tracer = otel.Tracer("hub")
	meter  = otel.Meter("hub")
)

const (
	// IdleTimeout disconnects a client that has sent nothing at all.
	IdleTimeout = 300 * time.Second

	sweepInterval = 1 * time.Second
)

type inboundMessage struct {
	c    *client.Client
	line string
}

// Options configures a hub.
type Options struct {
	MaxClients      int
	MaxRooms        int
	ReconnectWindow time.Duration
	Emitter         *statelog.Emitter
}

// Hub routes every protocol message and owns the server state.
type Hub struct {
	opts Options

	clients map[uint64]*client.Client
	rooms   map[int]*room.Room
	// prompted maps a client id to the nickname whose session recovery the
	// client was asked about and has not answered yet.
	prompted map[uint64]string

	sessions *session.Manager
	emitter  *statelog.Emitter

	nextClientID atomic.Uint64
	nextRoomID   int

	register   chan *client.Client
	inbound    chan inboundMessage
	unregister chan *client.Client
	snapshots  chan chan Snapshot
	done       chan struct{}

	connectionsTotal metric.Int64Counter
	messagesTotal    metric.Int64Counter
	strikesTotal     metric.Int64Counter
}

// New creates a hub. Run must be called before Register.
func New(opts Options) *Hub {
	if opts.ReconnectWindow == 0 {
		opts.ReconnectWindow = session.ReconnectWindow
	}
	if opts.Emitter == nil {
		opts.Emitter = statelog.NewEmitter()
	}

	connectionsTotal, _ := meter.Int64Counter("hub.connections.total",
		metric.WithDescription("Accepted connections"))
	messagesTotal, _ := meter.Int64Counter("hub.messages.total",
		metric.WithDescription("Processed inbound messages"))
	strikesTotal, _ := meter.Int64Counter("hub.strikes.total",
		metric.WithDescription("Protocol violations counted against clients"))

	return &Hub{
		opts:             opts,
		clients:          make(map[uint64]*client.Client),
		rooms:            make(map[int]*room.Room),
		prompted:         make(map[uint64]string),
		sessions:         session.NewManager(opts.ReconnectWindow),
		emitter:          opts.Emitter,
		nextRoomID:       1,
		register:         make(chan *client.Client),
		inbound:          make(chan inboundMessage, 64),
		unregister:       make(chan *client.Client),
		snapshots:        make(chan chan Snapshot),
		done:             make(chan struct{}),
		connectionsTotal: connectionsTotal,
		messagesTotal:    messagesTotal,
		strikesTotal:     strikesTotal,
	}
}

// Register hands a freshly accepted connection to the hub. It satisfies
// transport.Registrar and is safe to call from any accept goroutine.
func (h *Hub) Register(conn transport.Conn) {
	c := client.New(h.nextClientID.Add(1), conn)
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Run processes hub events until ctx is cancelled. It owns all hub state.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	slog.Info("hub running",
		"max_clients", h.opts.MaxClients,
		"max_rooms", h.opts.MaxRooms,
		"reconnect_window", h.opts.ReconnectWindow)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.handleRegister(c)

		case msg := <-h.inbound:
			// The client may have been disconnected while this message sat
			// in the queue.
			if h.clients[msg.c.ID] != msg.c {
				continue
			}
			h.processMessage(msg.c, msg.line)

		case c := <-h.unregister:
			if h.clients[c.ID] != c {
				continue
			}
			h.handleConnectionLost(c)

		case <-ticker.C:
			h.sweep()

		case reply := <-h.snapshots:
			reply <- h.snapshot()
		}
	}
}

func (h *Hub) handleRegister(c *client.Client) {
	if h.opts.MaxClients > 0 && len(h.clients) >= h.opts.MaxClients {
		slog.Warn("rejecting connection, server full", "addr", c.Addr)
		_ = c.Queue(proto.CmdError, "Server full")
		c.Close()
		return
	}

	h.clients[c.ID] = c
	h.connectionsTotal.Add(context.Background(), 1)
	slog.Info("client connected", "client.id", c.ID, "addr", c.Addr, "clients", len(h.clients))
	go h.readLoop(c)
}

// readLoop pumps one connection's lines into the hub. It runs per client,
// off the hub goroutine.
func (h *Hub) readLoop(c *client.Client) {
	for {
		line, err := c.ReadLine()
		if err != nil {
			if errors.Is(err, proto.ErrBufferOverflow) {
				_ = c.Queue(proto.CmdError, "Message too long")
			}
			select {
			case h.unregister <- c:
			case <-h.done:
			}
			return
		}
		select {
		case h.inbound <- inboundMessage{c: c, line: line}:
		case <-h.done:
			return
		}
	}
}

// disconnectClient force-closes a connection after a protocol violation or
// timeout. Mid-game disconnects keep their seat recoverable just like a
// dropped connection would.
func (h *Hub) disconnectClient(c *client.Client, reason string) {
	_ = c.Queue(proto.CmdError, reason)
	h.handleConnectionLost(c)
}

// handleConnectionLost is the single exit path for a registered client,
// whether the socket died or the hub gave up on it.
func (h *Hub) handleConnectionLost(c *client.Client) {
	delete(h.clients, c.ID)
	delete(h.prompted, c.ID)

	r := h.rooms[c.RoomID]

	switch {
	case c.State == proto.StatePlaying && r != nil && r.State == room.StatePlaying:
		// Mid-game drop: the seat survives for the reconnect window.
		h.sessions.Suspend(c.Nickname, c.SessionToken, r.ID)
		if opp := r.Opponent(c); opp != nil {
			_ = opp.Queue(proto.CmdPlayerDisconnected, c.Nickname)
		}
		slog.Info("player suspended for reconnect",
			"client.id", c.ID, "nickname", c.Nickname, "room.id", r.ID)
		h.emitter.Emit("player_disconnected", map[string]string{
			"roomId":   itoa(r.ID),
			"nickname": c.Nickname,
		})

	case r != nil:
		// Waiting or finished room: the seat is simply vacated.
		_ = r.RemovePlayer(c)
		h.settleRoom(r)
		if c.Nickname != "" {
			h.sessions.Deactivate(c.Nickname)
		}

	default:
		if c.Nickname != "" {
			h.sessions.Deactivate(c.Nickname)
		}
	}

	c.Close()
	slog.Info("client disconnected", "client.id", c.ID, "nickname", c.Nickname, "clients", len(h.clients))
}

// settleRoom removes a room that no longer hosts anyone. A finished game
// clears its own seats, so a FINISHED room arrives here already empty.
func (h *Hub) settleRoom(r *room.Room) {
	if r.IsEmpty() || h.roomAbandoned(r) {
		delete(h.rooms, r.ID)
		h.sessions.PurgeRoom(r.ID)
		slog.Info("room closed", "room.id", r.ID, "room.name", r.Name)
	}
}

// roomAbandoned reports whether no live connection and no recoverable
// session still points at the room.
func (h *Hub) roomAbandoned(r *room.Room) bool {
	for _, p := range r.Players() {
		if h.clients[p.ID] == p {
			return false
		}
		if pending, ok := h.sessions.Lookup(p.Nickname); ok && pending.RoomID == r.ID {
			return false
		}
	}
	return true
}

func (h *Hub) shutdown() {
	close(h.done)
	for _, c := range h.clients {
		_ = c.Queue(proto.CmdError, "Server shutting down")
		c.Close()
	}
	slog.Info("hub stopped", "clients", len(h.clients), "rooms", len(h.rooms))
}

// Snapshot is a point-in-time view of the hub for the admin API.
type Snapshot struct {
	Clients         int        `json:"clients"`
	Rooms           []RoomInfo `json:"rooms"`
	ActiveSessions  int        `json:"active_sessions"`
	PendingSessions int        `json:"pending_sessions"`
}

// RoomInfo describes one room in a snapshot.
type RoomInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	State   string `json:"state"`
}

// Stats returns a snapshot, or an error when the hub is stopped or the
// context expires first.
func (h *Hub) Stats(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case h.snapshots <- reply:
	case <-h.done:
		return Snapshot{}, errors.New("hub: stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (h *Hub) snapshot() Snapshot {
	s := Snapshot{
		Clients:         len(h.clients),
		Rooms:           make([]RoomInfo, 0, len(h.rooms)),
		ActiveSessions:  h.sessions.ActiveCount(),
		PendingSessions: h.sessions.PendingCount(),
	}
	for _, r := range h.rooms {
		s.Rooms = append(s.Rooms, RoomInfo{
			ID:      r.ID,
			Name:    r.Name,
			Players: len(r.Players()),
			State:   r.State.String(),
		})
	}
	return s
}
