package hub

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

// command describes one protocol verb: its argument arity bounds, the
// client states it is legal in, and its handler. Handlers receive the
// argument fields without the verb.
type command struct {
	minArgs int
	maxArgs int
	states  []proto.ClientState
	handler func(h *Hub, c *client.Client, args []string)
}

func (cmd command) allowedIn(s proto.ClientState) bool {
	for _, st := range cmd.states {
		if st == s {
			return true
		}
	}
	return false
}

var anyState = []proto.ClientState{
	proto.StateConnected, proto.StateLobby, proto.StateInRoom, proto.StatePlaying,
}

var seatedStates = []proto.ClientState{proto.StateInRoom, proto.StatePlaying}

var commands = map[string]command{
	proto.CmdLogin: {
		minArgs: 1, maxArgs: 2,
		states:  []proto.ClientState{proto.StateConnected},
		handler: (*Hub).handleLogin,
	},
	proto.CmdReconnectAccept: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StateConnected},
		handler: (*Hub).handleReconnectAccept,
	},
	proto.CmdReconnectDecline: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StateConnected},
		handler: (*Hub).handleReconnectDecline,
	},
	proto.CmdPing: {
		minArgs: 0, maxArgs: 0,
		states:  anyState,
		handler: (*Hub).handlePing,
	},
	proto.CmdDisconnect: {
		minArgs: 0, maxArgs: 0,
		states:  anyState,
		handler: (*Hub).handleDisconnect,
	},
	proto.CmdRoomList: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StateLobby},
		handler: (*Hub).handleRoomList,
	},
	proto.CmdCreateRoom: {
		minArgs: 1, maxArgs: 1,
		states:  []proto.ClientState{proto.StateLobby},
		handler: (*Hub).handleCreateRoom,
	},
	proto.CmdJoinRoom: {
		minArgs: 1, maxArgs: 1,
		states:  []proto.ClientState{proto.StateLobby},
		handler: (*Hub).handleJoinRoom,
	},
	proto.CmdLeaveRoom: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StateInRoom, proto.StatePlaying},
		handler: (*Hub).handleLeaveRoom,
	},
	proto.CmdHit: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StatePlaying},
		handler: (*Hub).handleHit,
	},
	proto.CmdStand: {
		minArgs: 0, maxArgs: 0,
		states:  []proto.ClientState{proto.StatePlaying},
		handler: (*Hub).handleStand,
	},
	proto.CmdAckDealCards: {states: seatedStates, handler: (*Hub).handleAck},
	proto.CmdAckRoundEnd:  {states: seatedStates, handler: (*Hub).handleAck},
	proto.CmdAckGameEnd:   {states: seatedStates, handler: (*Hub).handleAck},
	proto.CmdAckGameState: {states: seatedStates, handler: (*Hub).handleAck},
}

// processMessage routes one inbound line. Unknown verbs, bad arity and
// empty lines count as strikes; commands sent in the wrong state only draw
// an ERROR.
func (h *Hub) processMessage(c *client.Client, line string) {
	c.Touch()
	line = strings.TrimSuffix(line, "\r")

	_, span := tracer.Start(context.Background(), "hub.processMessage",
		trace.WithAttributes(
			attribute.Int64("client.id", int64(c.ID)),
			attribute.String("client.state", c.State.String()),
		))
	defer span.End()

	h.messagesTotal.Add(context.Background(), 1)

	if line == "" {
		h.strike(c, "Empty message")
		return
	}

	fields := proto.Parse(line)
	verb := fields[0]
	args := fields[1:]
	span.SetAttributes(attribute.String("command", verb))

	cmd, ok := commands[verb]
	if !ok {
		slog.Warn("unknown command", "client.id", c.ID, "command", verb)
		h.strike(c, "Unknown command")
		return
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		slog.Warn("bad argument count", "client.id", c.ID, "command", verb, "args", len(args))
		h.strike(c, "Invalid arguments for "+verb)
		return
	}
	if !cmd.allowedIn(c.State) {
		_ = c.Queue(proto.CmdError, verb+" not allowed in state "+c.State.String())
		return
	}

	cmd.handler(h, c, args)
}

// strike charges one protocol violation and disconnects on the third.
func (h *Hub) strike(c *client.Client, reason string) {
	h.strikesTotal.Add(context.Background(), 1)
	if c.AddStrike() {
		slog.Warn("strike limit reached, disconnecting",
			"client.id", c.ID, "nickname", c.Nickname)
		h.disconnectClient(c, "Too many invalid messages")
		return
	}
	_ = c.Queue(proto.CmdError, reason)
}

func itoa(n int) string { return strconv.Itoa(n) }
