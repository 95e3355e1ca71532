// Package room groups two clients around one game. Rooms are owned by the
// hub goroutine; nothing here is safe for concurrent use.
package room

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/internal/game"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

// Capacity is the number of seats per room.
const Capacity = 2

// MaxNameLen bounds user-supplied room names.
const MaxNameLen = 50

var (
	ErrRoomFull    = errors.New("room: room is full")
	ErrNotWaiting  = errors.New("room: room is not accepting players")
	ErrNotInRoom   = errors.New("room: client is not in this room")
	ErrEmptyName   = errors.New("room: room name is empty")
	ErrNameTooLong = errors.New("room: room name too long")
)

// State is the room lifecycle state as it appears on the wire.
type State int

const (
	StateWaiting State = iota
	StatePlaying
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StatePlaying:
		return "PLAYING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Room is one two-seat game room.
type Room struct {
	ID        int
	Name      string
	State     State
	CreatedAt time.Time

	players      []*client.Client
	game         *game.Game
	onStateEvent game.StateEventFunc
}

// ValidateName checks a user-supplied room name.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	return nil
}

// New creates a room with the creator already seated.
func New(id int, name string, creator *client.Client, onStateEvent game.StateEventFunc) *Room {
	r := &Room{
		ID:           id,
		Name:         name,
		State:        StateWaiting,
		CreatedAt:    time.Now(),
		players:      make([]*client.Client, 0, Capacity),
		game:         game.New(id),
		onStateEvent: onStateEvent,
	}
	r.game.OnStateEvent = onStateEvent
	r.players = append(r.players, creator)
	r.game.AddPlayer(creator)
	return r
}

// AddPlayer seats a second client. The caller starts the game afterwards if
// the room is full.
func (r *Room) AddPlayer(c *client.Client) error {
	if r.State != StateWaiting {
		return ErrNotWaiting
	}
	if len(r.players) >= Capacity {
		return ErrRoomFull
	}
	r.players = append(r.players, c)
	r.game.AddPlayer(c)
	return nil
}

// IsFull reports whether both seats are taken.
func (r *Room) IsFull() bool {
	return len(r.players) >= Capacity
}

// IsEmpty reports whether no seats are taken.
func (r *Room) IsEmpty() bool {
	return len(r.players) == 0
}

// HasPlayer reports whether the client holds a seat.
func (r *Room) HasPlayer(c *client.Client) bool {
	for _, p := range r.players {
		if p == c {
			return true
		}
	}
	return false
}

// Players returns the seated clients. Callers must not mutate the slice.
func (r *Room) Players() []*client.Client {
	return r.players
}

// Opponent returns the other seated client, or nil.
func (r *Room) Opponent(c *client.Client) *client.Client {
	for _, p := range r.players {
		if p != c {
			return p
		}
	}
	return nil
}

// Game exposes the room's game for turn actions and resync.
func (r *Room) Game() *game.Game {
	return r.game
}

// StartGame begins play once both seats are taken.
func (r *Room) StartGame() {
	if !r.IsFull() || r.State != StateWaiting {
		return
	}
	r.State = StatePlaying
	slog.Info("room starting game", "room.id", r.ID, "room.name", r.Name)
	r.game.Start()
	r.refreshState()
}

// RemovePlayer unseats a client who left voluntarily. A mid-game departure
// forfeits the game: the opponent is told, kept seated awaiting a new
// partner, and the room reverts to WAITING.
func (r *Room) RemovePlayer(c *client.Client) error {
	idx := -1
	for i, p := range r.players {
		if p == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotInRoom
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if r.State == StatePlaying {
		for _, p := range r.players {
			_ = p.Queue(proto.CmdOpponentLeft, c.Nickname, "LEFT")
		}
		r.ResetGame()
		slog.Info("player left mid-game, room reset", "room.id", r.ID, "nickname", c.Nickname)
	}
	return nil
}

// DropForfeited forfeits a playing room's absent seat: the nickname is
// unseated, the remaining client is told why with the given reason token
// and the room reverts to WAITING.
func (r *Room) DropForfeited(nickname, reason string) {
	if r.State != StatePlaying {
		return
	}
	for i, p := range r.players {
		if p.Nickname == nickname {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	for _, p := range r.players {
		_ = p.Queue(proto.CmdOpponentLeft, nickname, reason)
	}
	r.ResetGame()
	slog.Info("absent player forfeited", "room.id", r.ID, "nickname", nickname, "reason", reason)
}

// ResetGame discards the running game and returns the room to WAITING.
// Remaining seats survive and go back to awaiting a new partner.
func (r *Room) ResetGame() {
	r.game = game.New(r.ID)
	r.game.OnStateEvent = r.onStateEvent
	for _, p := range r.players {
		r.game.AddPlayer(p)
		p.State = proto.StateInRoom
	}
	r.State = StateWaiting
}

// ReconnectPlayer swaps a returning client into the seat its nickname held.
// Game state is preserved and replayed to the new connection.
func (r *Room) ReconnectPlayer(c *client.Client) bool {
	if !r.game.Rebind(c.Nickname, c) {
		return false
	}
	for i, p := range r.players {
		if p.Nickname == c.Nickname {
			r.players[i] = c
			return true
		}
	}
	// Seat is known to the game but the connection slot was vacated; a
	// disconnect keeps the slot, so take a free one.
	if len(r.players) < Capacity {
		r.players = append(r.players, c)
		return true
	}
	return false
}

// refreshState mirrors the game's terminal state onto the room. A finished
// game clears all seats and returns their connections to the lobby; the
// caller deletes the now-empty room.
func (r *Room) refreshState() {
	if r.State == StatePlaying && r.game.IsOver() {
		r.State = StateFinished
		for _, p := range r.players {
			p.State = proto.StateLobby
			p.RoomID = client.NoRoom
		}
		r.players = nil
		slog.Info("game over, room finished", "room.id", r.ID)
	}
}

// CheckGameOver finishes the room when its game has ended and reports
// whether it did.
func (r *Room) CheckGameOver() bool {
	r.refreshState()
	return r.State == StateFinished
}

// ProtocolFields returns one ROOM line for a room listing: id, name,
// seated count, capacity and state.
func (r *Room) ProtocolFields() []string {
	return []string{
		proto.CmdRoom,
		strconv.Itoa(r.ID),
		proto.Escape(r.Name),
		strconv.Itoa(len(r.players)),
		strconv.Itoa(Capacity),
		r.State.String(),
	}
}
