package game

import (
	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

// State returns the current lifecycle state.
func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Round returns the current round number, starting at 1.
func (g *Game) Round() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.round
}

// IsOver reports whether the game has reached GAME_ENDED.
func (g *Game) IsOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == StateGameEnded
}

// HasPlayer reports whether the client currently holds a seat.
func (g *Game) HasPlayer(c *client.Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playerFor(c) != nil
}

// OpponentOf returns the opposing seat's client, or nil.
func (g *Game) OpponentOf(c *client.Client) *client.Client {
	g.mu.Lock()
	defer g.mu.Unlock()
	p := g.playerFor(c)
	if p == nil {
		return nil
	}
	opp := g.opponent(p)
	if opp == nil {
		return nil
	}
	return opp.Client
}

// Rebind replaces the connection bound to the seat holding nickname. All
// in-round state (hand, score, standing, role, turn) survives untouched.
// It reports whether a seat with that nickname exists.
func (g *Game) Rebind(nickname string, c *client.Client) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.seatByNickname(nickname)
	if p == nil {
		return false
	}
	p.rebind(c)
	return true
}

// ResumeSync replays the full game view to both seats once a reconnect
// brings everyone back: GAME_START with each seat's role, GAME_STATE, each
// seat's current hand, and YOUR_TURN for the turn holder.
func (g *Game) ResumeSync() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.player1 == nil || g.player2 == nil {
		return
	}

	_ = g.player1.Client.Queue(proto.CmdGameStart, g.roleOf(g.player1), g.player2.Nickname)
	_ = g.player2.Client.Queue(proto.CmdGameStart, g.roleOf(g.player2), g.player1.Nickname)
	g.notifyGameState()
	g.notifyHand(g.player1)
	g.notifyHand(g.player2)
	if g.state == StatePlaying && g.current != nil && !g.current.Standing && !g.current.Busted {
		g.notifyYourTurn(g.current)
	}
}

// OpponentNickname returns the nickname seated opposite the given one, or
// an empty string.
func (g *Game) OpponentNickname(nickname string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.seatByNickname(nickname)
	if p == nil {
		return ""
	}
	opp := g.opponent(p)
	if opp == nil {
		return ""
	}
	return opp.Nickname
}

// winnerLocked names the seat with the higher score, or "TIE". Callers hold
// the lock.
func (g *Game) winnerLocked() string {
	switch {
	case g.player1.Score > g.player2.Score:
		return g.player1.Nickname
	case g.player2.Score > g.player1.Score:
		return g.player2.Nickname
	default:
		return "TIE"
	}
}

func (g *Game) seatByNickname(nickname string) *Player {
	if g.player1 != nil && g.player1.Nickname == nickname {
		return g.player1
	}
	if g.player2 != nil && g.player2.Nickname == nickname {
		return g.player2
	}
	return nil
}
