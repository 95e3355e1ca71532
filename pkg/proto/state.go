package proto

// ClientState is the protocol state of one connection.
type ClientState int

const (
	StateConnected ClientState = iota // connected, not logged in
	StateLobby                        // logged in, browsing rooms
	StateInRoom                       // seated, waiting for the game
	StatePlaying                      // game in progress
)

func (s ClientState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateLobby:
		return "LOBBY"
	case StateInRoom:
		return "IN_ROOM"
	case StatePlaying:
		return "PLAYING"
	default:
		return "UNKNOWN"
	}
}
