package hub

import "log/slog"

// sweep runs once per second on the hub goroutine: it forfeits players
// whose reconnect window closed, drops idle connections and drops clients
// whose outbound queue overflowed.
func (h *Hub) sweep() {
	for _, pending := range h.sessions.Expired() {
		r := h.rooms[pending.RoomID]
		if r == nil {
			continue
		}
		slog.Info("reconnect window expired",
			"nickname", pending.Nickname, "room.id", pending.RoomID)
		r.DropForfeited(pending.Nickname, "TIMEOUT")
		h.settleRoom(r)
		h.emitter.Emit("reconnect_expired", map[string]string{
			"roomId":   itoa(pending.RoomID),
			"nickname": pending.Nickname,
		})
	}

	for _, c := range h.clients {
		if c.OutboundOverflowed() {
			slog.Warn("outbound queue overflowed", "client.id", c.ID, "nickname", c.Nickname)
			h.disconnectClient(c, "Client too slow")
			continue
		}
		if c.IdleFor(IdleTimeout) {
			slog.Info("idle timeout", "client.id", c.ID, "nickname", c.Nickname)
			h.disconnectClient(c, "Idle timeout")
		}
	}
}
