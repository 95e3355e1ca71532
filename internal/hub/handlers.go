package hub

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/internal/room"
	"github.com/michroucka/UPS-SP/internal/session"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

// handleLogin serves both fresh logins and token reconnects. A token-less
// login whose nickname has a recoverable session triggers the recovery
// prompt instead of completing.
func (h *Hub) handleLogin(c *client.Client, args []string) {
	nickname := args[0]
	if !proto.IsValidNickname(nickname) {
		_ = c.Queue(proto.CmdError, "Invalid nickname")
		return
	}

	if len(args) == 2 {
		h.resumeSession(c, nickname, args[1])
		return
	}

	if h.sessions.IsActive(nickname) {
		_ = c.Queue(proto.CmdError, "Nickname already in use")
		return
	}

	if pending, ok := h.sessions.Lookup(nickname); ok {
		oppNick := ""
		if r := h.rooms[pending.RoomID]; r != nil {
			oppNick = r.Game().OpponentNickname(nickname)
		}
		h.prompted[c.ID] = nickname
		slog.Info("prompting for session recovery",
			"client.id", c.ID, "nickname", nickname, "room.id", pending.RoomID)
		_ = c.Queue(proto.CmdReconnectQuery, itoa(pending.RoomID), oppNick)
		return
	}

	h.completeLogin(c, nickname)
}

func (h *Hub) completeLogin(c *client.Client, nickname string) {
	if err := h.sessions.Activate(nickname); err != nil {
		_ = c.Queue(proto.CmdError, "Nickname already in use")
		return
	}
	c.Nickname = nickname
	c.SessionToken = session.NewToken()
	c.State = proto.StateLobby

	slog.Info("client logged in", "client.id", c.ID, "nickname", nickname)
	_ = c.Queue(proto.CmdOK, c.SessionToken)
}

// resumeSession validates a reconnect token and, on success, swaps the new
// connection into the old seat and replays the game state. Every failure
// ends the connection; the client must start over.
func (h *Hub) resumeSession(c *client.Client, nickname, token string) {
	pending, err := h.sessions.Resume(nickname, token)
	switch err {
	case nil:
	case session.ErrTokenMismatch:
		slog.Warn("reconnect token mismatch", "client.id", c.ID, "nickname", nickname)
		h.disconnectClient(c, "Invalid session token")
		return
	default:
		// No session or an expired one: nothing left to recover.
		h.disconnectClient(c, "Session expired")
		return
	}

	r := h.rooms[pending.RoomID]
	if r == nil || r.State != room.StatePlaying {
		h.sessions.Deactivate(nickname)
		if r != nil {
			h.settleRoom(r)
		}
		h.disconnectClient(c, "Game no longer exists")
		return
	}

	c.Nickname = nickname
	c.SessionToken = token
	c.State = proto.StatePlaying
	c.RoomID = r.ID

	if !r.ReconnectPlayer(c) {
		h.sessions.Deactivate(nickname)
		h.disconnectClient(c, "Game no longer exists")
		return
	}

	slog.Info("player reconnected", "client.id", c.ID, "nickname", nickname, "room.id", r.ID)
	_ = c.Queue(proto.CmdOK, token)

	oppNick := r.Game().OpponentNickname(nickname)
	if _, away := h.sessions.Lookup(oppNick); away {
		// The other seat is still away. Hold the state replay until both
		// players are back; the returning one only learns who it waits for.
		_ = c.Queue(proto.CmdPlayerDisconnected, oppNick)
		slog.Info("reconnect waiting on opponent", "nickname", nickname, "opponent", oppNick)
	} else {
		if opp := r.Opponent(c); opp != nil {
			_ = opp.Queue(proto.CmdPlayerReconnected, nickname)
		}
		r.Game().ResumeSync()
	}

	h.emitter.Emit("player_reconnected", map[string]string{
		"roomId":   itoa(r.ID),
		"nickname": nickname,
	})
}

// handleReconnectAccept resumes the prompted session with its stored token.
// The prompt path exists for clients that lost their token, so none is
// required on the wire.
func (h *Hub) handleReconnectAccept(c *client.Client, _ []string) {
	nickname, ok := h.prompted[c.ID]
	if !ok {
		_ = c.Queue(proto.CmdError, "No session recovery pending")
		return
	}
	delete(h.prompted, c.ID)

	pending, ok := h.sessions.Lookup(nickname)
	if !ok {
		h.disconnectClient(c, "Session expired")
		return
	}
	h.resumeSession(c, nickname, pending.Token)
}

// handleReconnectDecline abandons the recoverable session, forfeits its
// game and completes the login as a fresh one.
func (h *Hub) handleReconnectDecline(c *client.Client, _ []string) {
	nickname, ok := h.prompted[c.ID]
	if !ok {
		_ = c.Queue(proto.CmdError, "No session recovery pending")
		return
	}
	delete(h.prompted, c.ID)

	if pending, found := h.sessions.Lookup(nickname); found {
		h.sessions.Drop(nickname)
		if r := h.rooms[pending.RoomID]; r != nil {
			r.DropForfeited(nickname, "DECLINED")
			// The old game is gone, so any other session still pointing at
			// this room has nothing left to rejoin.
			h.sessions.PurgeRoom(r.ID)
			h.settleRoom(r)
		}
		slog.Info("session recovery declined", "client.id", c.ID, "nickname", nickname)
	}

	h.completeLogin(c, nickname)
}

func (h *Hub) handlePing(c *client.Client, _ []string) {
	_ = c.Queue(proto.CmdPong)
}

// handleDisconnect is the voluntary goodbye. It tears the connection down
// the same way a dead socket would, so a mid-game departure still leaves a
// recoverable session behind.
func (h *Hub) handleDisconnect(c *client.Client, _ []string) {
	slog.Info("client said goodbye", "client.id", c.ID, "nickname", c.Nickname)
	_ = c.Queue(proto.CmdOK)
	h.handleConnectionLost(c)
}

func (h *Hub) handleRoomList(c *client.Client, _ []string) {
	ids := make([]int, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	_ = c.Queue(proto.CmdRooms, itoa(len(ids)))
	for _, id := range ids {
		_ = c.Queue(h.rooms[id].ProtocolFields()...)
	}
}

func (h *Hub) handleCreateRoom(c *client.Client, args []string) {
	name := args[0]
	if err := room.ValidateName(name); err != nil {
		_ = c.Queue(proto.CmdError, "Invalid room name")
		return
	}
	if h.opts.MaxRooms > 0 && len(h.rooms) >= h.opts.MaxRooms {
		_ = c.Queue(proto.CmdError, "Room limit reached")
		return
	}

	id := h.nextRoomID
	h.nextRoomID++
	r := room.New(id, name, c, h.emitter.Emit)
	h.rooms[id] = r

	c.State = proto.StateInRoom
	c.RoomID = id

	slog.Info("room created", "room.id", id, "room.name", name, "nickname", c.Nickname)
	_ = c.Queue(proto.CmdRoomCreated, itoa(id))

	h.emitter.Emit("room_created", map[string]string{
		"roomId":   itoa(id),
		"name":     name,
		"nickname": c.Nickname,
	})
}

func (h *Hub) handleJoinRoom(c *client.Client, args []string) {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		h.strike(c, "Invalid room id")
		return
	}
	r := h.rooms[id]
	if r == nil {
		_ = c.Queue(proto.CmdError, "Room not found")
		return
	}

	switch err := r.AddPlayer(c); err {
	case nil:
	case room.ErrRoomFull:
		_ = c.Queue(proto.CmdError, "Room is full")
		return
	default:
		_ = c.Queue(proto.CmdError, "Room is not accepting players")
		return
	}

	c.State = proto.StateInRoom
	c.RoomID = id
	seated := itoa(len(r.Players()))
	for _, p := range r.Players() {
		_ = p.Queue(proto.CmdJoined, itoa(id), seated)
	}

	if r.IsFull() {
		for _, p := range r.Players() {
			p.State = proto.StatePlaying
		}
		r.StartGame()
	}
}

func (h *Hub) handleLeaveRoom(c *client.Client, _ []string) {
	r := h.rooms[c.RoomID]
	if r == nil {
		_ = c.Queue(proto.CmdError, "Not in a room")
		return
	}
	if err := r.RemovePlayer(c); err != nil {
		_ = c.Queue(proto.CmdError, "Not in a room")
		return
	}
	c.State = proto.StateLobby
	c.RoomID = client.NoRoom
	_ = c.Queue(proto.CmdOK)
	h.settleRoom(r)
}

func (h *Hub) handleHit(c *client.Client, _ []string) {
	r := h.rooms[c.RoomID]
	if r == nil || r.State != room.StatePlaying {
		_ = c.Queue(proto.CmdError, "No game in progress")
		return
	}
	_ = r.Game().Hit(c)
	if r.CheckGameOver() {
		h.settleRoom(r)
	}
}

func (h *Hub) handleStand(c *client.Client, _ []string) {
	r := h.rooms[c.RoomID]
	if r == nil || r.State != room.StatePlaying {
		_ = c.Queue(proto.CmdError, "No game in progress")
		return
	}
	_ = r.Game().Stand(c)
	if r.CheckGameOver() {
		h.settleRoom(r)
	}
}

// handleAck accepts the client-side delivery acknowledgements. They carry
// no state; their arrival already refreshed the liveness timestamp.
func (h *Hub) handleAck(_ *client.Client, _ []string) {}
