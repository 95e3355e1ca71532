// Package session tracks which nicknames are live and which disconnected
// mid-game and may still return. The manager is owned by the hub goroutine.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ReconnectWindow is how long a mid-game session survives its connection.
const ReconnectWindow = 30 * time.Second

var (
	ErrNicknameTaken = errors.New("session: nickname already in use")
	ErrNoSession     = errors.New("session: no recoverable session")
	ErrExpired       = errors.New("session: session expired")
	ErrTokenMismatch = errors.New("session: token mismatch")
)

// Pending is a mid-game session waiting for its player to return.
type Pending struct {
	Nickname       string
	Token          string
	RoomID         int
	DisconnectedAt time.Time
}

// Manager owns the nickname and pending-session tables.
type Manager struct {
	window  time.Duration
	active  map[string]struct{}
	pending map[string]Pending
}

// NewManager creates a manager with the given reconnect window.
func NewManager(window time.Duration) *Manager {
	return &Manager{
		window:  window,
		active:  make(map[string]struct{}),
		pending: make(map[string]Pending),
	}
}

// NewToken mints an opaque session token. Tokens are compared by exact
// match only.
func NewToken() string {
	return uuid.NewString()
}

// Activate claims a nickname for a live connection.
func (m *Manager) Activate(nickname string) error {
	if _, ok := m.active[nickname]; ok {
		return ErrNicknameTaken
	}
	m.active[nickname] = struct{}{}
	return nil
}

// IsActive reports whether a nickname is held by a live connection.
func (m *Manager) IsActive(nickname string) bool {
	_, ok := m.active[nickname]
	return ok
}

// Deactivate releases a nickname.
func (m *Manager) Deactivate(nickname string) {
	delete(m.active, nickname)
}

// Suspend records a mid-game disconnect. The nickname stays reserved via
// the pending table; the active claim is released so the connection tables
// stay consistent.
func (m *Manager) Suspend(nickname, token string, roomID int) {
	delete(m.active, nickname)
	m.pending[nickname] = Pending{
		Nickname:       nickname,
		Token:          token,
		RoomID:         roomID,
		DisconnectedAt: time.Now(),
	}
}

// Lookup returns the pending session for a nickname, if any. It does not
// check expiry; Resume does.
func (m *Manager) Lookup(nickname string) (Pending, bool) {
	p, ok := m.pending[nickname]
	return p, ok
}

// Resume validates a returning player's token against the pending session
// and, on success, removes the record and re-activates the nickname.
// Tokens are exact-match only; a mismatch evicts the record outright, so
// the nickname is free again and nobody can return to that seat. Expired
// records are removed as a side effect.
func (m *Manager) Resume(nickname, token string) (Pending, error) {
	p, ok := m.pending[nickname]
	if !ok {
		return Pending{}, ErrNoSession
	}
	if time.Since(p.DisconnectedAt) > m.window {
		delete(m.pending, nickname)
		return Pending{}, ErrExpired
	}
	if p.Token != token {
		delete(m.pending, nickname)
		return Pending{}, ErrTokenMismatch
	}
	delete(m.pending, nickname)
	m.active[nickname] = struct{}{}
	return p, nil
}

// Drop discards a pending session without resuming it.
func (m *Manager) Drop(nickname string) {
	delete(m.pending, nickname)
}

// Expired removes and returns every pending session older than the window.
// The hub sweep calls this to forfeit players who never came back.
func (m *Manager) Expired() []Pending {
	var out []Pending
	now := time.Now()
	for nick, p := range m.pending {
		if now.Sub(p.DisconnectedAt) > m.window {
			out = append(out, p)
			delete(m.pending, nick)
		}
	}
	return out
}

// PurgeRoom discards pending sessions bound to a room that no longer
// exists.
func (m *Manager) PurgeRoom(roomID int) {
	for nick, p := range m.pending {
		if p.RoomID == roomID {
			delete(m.pending, nick)
		}
	}
}

// ActiveCount returns the number of live nicknames.
func (m *Manager) ActiveCount() int { return len(m.active) }

// PendingCount returns the number of recoverable sessions.
func (m *Manager) PendingCount() int { return len(m.pending) }
