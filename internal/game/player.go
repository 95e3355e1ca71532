package game

import (
	"strings"

	"github.com/michroucka/UPS-SP/internal/card"
	"github.com/michroucka/UPS-SP/internal/client"
)

// Player is one seat in a game. The nickname is cached because the client
// reference goes stale while the peer is disconnected and may be replaced
// on reconnect.
type Player struct {
	Client   *client.Client
	Nickname string
	Hand     []card.Card
	Score    int
	Standing bool
	Busted   bool
}

func newPlayer(c *client.Client) *Player {
	return &Player{Client: c, Nickname: c.Nickname}
}

// HandValue returns the hand total. A hand of nothing but aces (the
// double-ace case) is worth exactly 21 regardless of draw order.
func (p *Player) HandValue() int {
	if p.HasDoubleAce() {
		return DoubleAceValue
	}
	total := 0
	for _, c := range p.Hand {
		total += c.Value()
	}
	return total
}

// HasDoubleAce reports whether the hand consists of two (or more) aces and
// nothing else.
func (p *Player) HasDoubleAce() bool {
	if len(p.Hand) < 2 {
		return false
	}
	for _, c := range p.Hand {
		if c.Rank != card.Eso {
			return false
		}
	}
	return true
}

// HandString returns the comma-joined card tokens for protocol messages.
func (p *Player) HandString() string {
	tokens := make([]string, len(p.Hand))
	for i, c := range p.Hand {
		tokens[i] = c.String()
	}
	return strings.Join(tokens, ",")
}

// resetRound clears the per-round state; the score persists for the life of
// the game.
func (p *Player) resetRound() {
	p.Hand = p.Hand[:0]
	p.Standing = false
	p.Busted = false
}

// rebind replaces the stale client reference after a reconnect. This is the
// only cross-component mutation in the model and is invoked solely by the
// session manager path in the hub.
func (p *Player) rebind(c *client.Client) {
	p.Client = c
}
