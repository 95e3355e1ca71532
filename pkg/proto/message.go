// Package proto defines the text wire protocol: one message per line, fields
// separated by '|', the line terminated by '\n'.
package proto

import "strings"

const (
	// Delimiter separates fields within one message.
	Delimiter = '|'
	// Terminator ends one message.
	Terminator = '\n'

	// MaxBufferedSize is the maximum number of unconsumed bytes a peer may
	// have buffered; exceeding it is a protocol violation.
	MaxBufferedSize = 4096

	// MaxInvalidMessages is the strike limit before a forced disconnect.
	MaxInvalidMessages = 3
)

// Commands client -> server.
const (
	CmdLogin            = "LOGIN"
	CmdPing             = "PING"
	CmdDisconnect       = "DISCONNECT"
	CmdRoomList         = "ROOM_LIST"
	CmdCreateRoom       = "CREATE_ROOM"
	CmdJoinRoom         = "JOIN_ROOM"
	CmdLeaveRoom        = "LEAVE_ROOM"
	CmdHit              = "HIT"
	CmdStand            = "STAND"
	CmdReconnectAccept  = "RECONNECT_ACCEPT"
	CmdReconnectDecline = "RECONNECT_DECLINE"
	CmdAckDealCards     = "ACK_DEAL_CARDS"
	CmdAckRoundEnd      = "ACK_ROUND_END"
	CmdAckGameEnd       = "ACK_GAME_END"
	CmdAckGameState     = "ACK_GAME_STATE"
)

// Commands server -> client.
const (
	CmdOK                 = "OK"
	CmdError              = "ERROR"
	CmdPong               = "PONG"
	CmdRooms              = "ROOMS"
	CmdRoom               = "ROOM"
	CmdRoomCreated        = "ROOM_CREATED"
	CmdJoined             = "JOINED"
	CmdGameStart          = "GAME_START"
	CmdDealCards          = "DEAL_CARDS"
	CmdGameState          = "GAME_STATE"
	CmdYourTurn           = "YOUR_TURN"
	CmdCard               = "CARD"
	CmdOpponentAction     = "OPPONENT_ACTION"
	CmdRoundEnd           = "ROUND_END"
	CmdGameEnd            = "GAME_END"
	CmdPlayerDisconnected = "PLAYER_DISCONNECTED"
	CmdPlayerReconnected  = "PLAYER_RECONNECTED"
	CmdOpponentLeft       = "OPPONENT_LEFT"
	CmdReconnectQuery     = "RECONNECT_QUERY"
)

// Parse splits one message (without its terminator) into fields.
func Parse(message string) []string {
	return strings.Split(message, string(Delimiter))
}

// Build joins fields with the delimiter and appends the terminator. An empty
// field list yields just the terminator.
func Build(fields ...string) string {
	if len(fields) == 0 {
		return string(Terminator)
	}
	return strings.Join(fields, string(Delimiter)) + string(Terminator)
}

// Escape replaces the delimiter and terminator in user-supplied data so it
// cannot break message framing. Validated nicknames never need this; it
// guards free-form fields such as room names.
func Escape(s string) string {
	s = strings.ReplaceAll(s, string(Delimiter), "_")
	return strings.ReplaceAll(s, string(Terminator), " ")
}
