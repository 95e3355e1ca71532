// Package game implements the Oko bere round state machine for two seats:
// dealing, turn order, hit/stand, busting, round scoring, banker rotation
// and game-level win detection.
package game

import (
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/michroucka/UPS-SP/internal/card"
	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

const (
	// InitHandSize is the number of cards dealt to each seat per round.
	InitHandSize = 2
	// ScoreToWin is the round-win count that ends the game.
	ScoreToWin = 3
	// BustThreshold busts any hand whose total exceeds it.
	BustThreshold = 21
	// DoubleAceValue is the fixed value of an all-aces hand.
	DoubleAceValue = 21
)

// Roles as they appear on the wire. The banker wins value ties and the
// role alternates every round.
const (
	RolePlayer = "PLAYER"
	RoleBanker = "BANKER"
)

// Opponent actions as they appear on the wire.
const (
	ActionHit    = "HIT"
	ActionStand  = "STAND"
	ActionBusted = "BUSTED"
)

// Outcome tokens, always framed relative to the recipient.
const (
	OutcomeYou      = "YOU"
	OutcomeOpponent = "OPPONENT"
	OutcomeTie      = "TIE"
)

// State is the lifecycle state of one game.
type State int

const (
	StateWaitingForPlayers State = iota
	StatePlaying
	StateRoundEnded
	StateGameEnded
)

func (s State) String() string {
	switch s {
	case StateWaitingForPlayers:
		return "WAITING_FOR_PLAYERS"
	case StatePlaying:
		return "PLAYING"
	case StateRoundEnded:
		return "ROUND_ENDED"
	case StateGameEnded:
		return "GAME_ENDED"
	default:
		return "UNKNOWN"
	}
}

// Business-rule errors. They are reported to the actor and never count as
// protocol violations.
var (
	ErrNotInGame   = errors.New("game: client is not seated in this game")
	ErrNotPlaying  = errors.New("game: not in state PLAYING")
	ErrNotYourTurn = errors.New("game: not your turn")
	ErrTurnOver    = errors.New("game: turn already ended")
)

// StateEventFunc receives structured state events (game_start, round_end,
// game_end) for the external recovery stream.
type StateEventFunc func(event string, fields map[string]string)

// Game is one two-seat Oko bere game, owned by its room.
type Game struct {
	mu sync.Mutex

	roomID int
	state  State
	deck   *card.Deck

	player1 *Player
	player2 *Player
	current *Player

	round      int
	p1IsBanker bool

	// OnStateEvent, when set, is invoked with state transitions worth
	// journaling. Set once before Start; never mutated afterwards.
	OnStateEvent StateEventFunc
}

// New creates an empty game for the given room.
func New(roomID int) *Game {
	return &Game{
		roomID: roomID,
		state:  StateWaitingForPlayers,
		deck:   card.NewDeck(),
	}
}

// AddPlayer seats a client in the first free seat. Seats beyond the second
// are ignored; the room enforces capacity before calling.
func (g *Game) AddPlayer(c *client.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.player1 == nil:
		g.player1 = newPlayer(c)
		slog.Info("seated player 1", "game.id", g.roomID, "nickname", c.Nickname)
	case g.player2 == nil:
		g.player2 = newPlayer(c)
		slog.Info("seated player 2", "game.id", g.roomID, "nickname", c.Nickname)
	}
}

// CanStart reports whether both seats are occupied.
func (g *Game) CanStart() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.player1 != nil && g.player2 != nil
}

// Start begins round one: announces roles, deals the initial hands and
// gives the non-banker seat the first turn.
func (g *Game) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.player1 == nil || g.player2 == nil || g.state != StateWaitingForPlayers {
		return
	}

	g.state = StatePlaying
	g.round = 1
	g.current = g.playerSeat()

	slog.Info("game starting", "game.id", g.roomID,
		"player1", g.player1.Nickname, "player2", g.player2.Nickname)

	_ = g.player1.Client.Queue(proto.CmdGameStart, g.roleOf(g.player1), g.player2.Nickname)
	_ = g.player2.Client.Queue(proto.CmdGameStart, g.roleOf(g.player2), g.player1.Nickname)

	g.emit("game_start", map[string]string{
		"roomId":  strconv.Itoa(g.roomID),
		"player1": g.player1.Nickname,
		"player2": g.player2.Nickname,
	})

	g.player1.resetRound()
	g.player2.resetRound()
	g.dealInitialCards()
	g.notifyGameState()
	g.beginTurn()
}

// Hit draws one card for the acting client. Turn and state violations are
// reported to the actor and returned; they never mutate game state.
func (g *Game) Hit(c *client.Client) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerFor(c)
	if p == nil {
		slog.Warn("hit from client not in game", "game.id", g.roomID)
		return ErrNotInGame
	}
	if err := g.checkTurn(p, c); err != nil {
		return err
	}

	_ = c.Queue(proto.CmdOK)

	drawn := g.deck.Draw()
	p.Hand = append(p.Hand, drawn)
	slog.Info("player drew card", "game.id", g.roomID, "nickname", p.Nickname, "card", drawn.String())

	_ = c.Queue(proto.CmdCard, drawn.String())
	if opp := g.opponent(p); opp != nil {
		_ = opp.Client.Queue(proto.CmdOpponentAction, ActionHit, "")
	}

	if p.HasDoubleAce() {
		g.applyStand(p)
		return nil
	}

	if p.HandValue() > BustThreshold {
		p.Busted = true
		slog.Info("player busted", "game.id", g.roomID, "nickname", p.Nickname, "value", p.HandValue())
		if opp := g.opponent(p); opp != nil {
			_ = opp.Client.Queue(proto.CmdOpponentAction, ActionBusted, "")
		}
		g.checkRoundEnd()
		return nil
	}

	g.notifyYourTurn(p)
	return nil
}

// Stand marks the acting client's hand as standing and passes the turn or
// ends the round.
func (g *Game) Stand(c *client.Client) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.playerFor(c)
	if p == nil {
		slog.Warn("stand from client not in game", "game.id", g.roomID)
		return ErrNotInGame
	}
	if err := g.checkTurn(p, c); err != nil {
		return err
	}

	slog.Info("player standing", "game.id", g.roomID, "nickname", p.Nickname, "value", p.HandValue())
	g.applyStand(p)
	return nil
}

// checkTurn validates the acting seat. Callers hold the lock.
func (g *Game) checkTurn(p *Player, c *client.Client) error {
	if g.state != StatePlaying {
		_ = c.Queue(proto.CmdError, "Game not in state PLAYING")
		return ErrNotPlaying
	}
	if g.current != p {
		_ = c.Queue(proto.CmdError, "Not your turn")
		return ErrNotYourTurn
	}
	if p.Standing || p.Busted {
		_ = c.Queue(proto.CmdError, "Your turn ended")
		return ErrTurnOver
	}
	return nil
}

// applyStand performs the stand transition for a seat, whether requested or
// forced by a double ace. Callers hold the lock.
func (g *Game) applyStand(p *Player) {
	p.Standing = true
	_ = p.Client.Queue(proto.CmdOK)
	if opp := g.opponent(p); opp != nil {
		_ = opp.Client.Queue(proto.CmdOpponentAction, ActionStand, "")
	}

	if p == g.playerSeat() {
		g.switchTurns()
		g.beginTurn()
	} else {
		g.checkRoundEnd()
	}
}

// beginTurn hands the turn to the current seat. A double-ace hand is stood
// automatically; at most one auto-resolve is applied per seat per call, and
// the cascade reaches the banker through the applyStand → beginTurn step. A
// banker double ace ends the round via checkRoundEnd.
func (g *Game) beginTurn() {
	p := g.current
	if g.state != StatePlaying || p == nil {
		return
	}

	if p.HasDoubleAce() && !p.Standing && !p.Busted {
		slog.Info("double ace, standing automatically", "game.id", g.roomID,
			"nickname", p.Nickname, "role", g.roleOf(p))
		g.notifyYourTurn(p)
		g.applyStand(p)
		return
	}

	g.notifyYourTurn(p)
}

func (g *Game) switchTurns() {
	if g.current == g.player1 {
		g.current = g.player2
	} else {
		g.current = g.player1
	}
}

// checkRoundEnd fires the round evaluation iff a bust exists or both hands
// are standing. Callers hold the lock.
func (g *Game) checkRoundEnd() {
	if g.player1.Busted || g.player2.Busted || (g.player1.Standing && g.player2.Standing) {
		g.endRound()
	}
}

func (g *Game) endRound() {
	val1 := g.player1.HandValue()
	val2 := g.player2.HandValue()

	// Winner from player1's perspective: a busted hand always loses, then
	// higher total wins, and a tie goes to the banker seat.
	var winner1 string
	switch {
	case g.player1.Busted:
		winner1 = OutcomeOpponent
	case g.player2.Busted:
		winner1 = OutcomeYou
	case val1 > val2:
		winner1 = OutcomeYou
	case val2 > val1:
		winner1 = OutcomeOpponent
	case g.p1IsBanker:
		winner1 = OutcomeYou
	default:
		winner1 = OutcomeOpponent
	}

	if winner1 == OutcomeYou {
		g.player1.Score++
	} else {
		g.player2.Score++
	}

	winner2 := OutcomeYou
	if winner1 == OutcomeYou {
		winner2 = OutcomeOpponent
	}

	slog.Info("round ended", "game.id", g.roomID, "round", g.round,
		"value1", val1, "value2", val2,
		"score1", g.player1.Score, "score2", g.player2.Score)

	_ = g.player1.Client.Queue(proto.CmdRoundEnd, winner1,
		strconv.Itoa(val1), strconv.Itoa(val2),
		g.player1.HandString(), g.player2.HandString())
	_ = g.player2.Client.Queue(proto.CmdRoundEnd, winner2,
		strconv.Itoa(val2), strconv.Itoa(val1),
		g.player2.HandString(), g.player1.HandString())

	g.state = StateRoundEnded

	g.emit("round_end", map[string]string{
		"roomId": strconv.Itoa(g.roomID),
		"round":  strconv.Itoa(g.round),
		"score1": strconv.Itoa(g.player1.Score),
		"score2": strconv.Itoa(g.player2.Score),
	})

	if g.player1.Score >= ScoreToWin || g.player2.Score >= ScoreToWin {
		g.endGame()
		return
	}

	g.round++
	g.p1IsBanker = !g.p1IsBanker
	g.player1.resetRound()
	g.player2.resetRound()
	g.current = g.playerSeat()
	g.dealInitialCards()
	g.state = StatePlaying
	g.notifyGameState()
	g.beginTurn()
}

func (g *Game) endGame() {
	winner1, winner2 := OutcomeTie, OutcomeTie
	if g.player1.Score > g.player2.Score {
		winner1, winner2 = OutcomeYou, OutcomeOpponent
	} else if g.player2.Score > g.player1.Score {
		winner1, winner2 = OutcomeOpponent, OutcomeYou
	}

	_ = g.player1.Client.Queue(proto.CmdGameEnd, winner1,
		strconv.Itoa(g.player1.Score), strconv.Itoa(g.player2.Score))
	_ = g.player2.Client.Queue(proto.CmdGameEnd, winner2,
		strconv.Itoa(g.player2.Score), strconv.Itoa(g.player1.Score))

	g.state = StateGameEnded
	slog.Info("game ended", "game.id", g.roomID,
		"score1", g.player1.Score, "score2", g.player2.Score)

	g.emit("game_end", map[string]string{
		"roomId": strconv.Itoa(g.roomID),
		"score1": strconv.Itoa(g.player1.Score),
		"score2": strconv.Itoa(g.player2.Score),
		"winner": g.winnerLocked(),
	})
}

func (g *Game) dealInitialCards() {
	playerSeat := g.playerSeat()
	bankerSeat := g.bankerSeat()

	for i := 0; i < InitHandSize; i++ {
		playerSeat.Hand = append(playerSeat.Hand, g.deck.Draw())
		bankerSeat.Hand = append(bankerSeat.Hand, g.deck.Draw())
	}

	g.notifyHand(playerSeat)
	g.notifyHand(bankerSeat)
	slog.Info("cards dealt", "game.id", g.roomID, "round", g.round)
}

// playerSeat returns the seat holding the PLAYER role this round.
func (g *Game) playerSeat() *Player {
	if g.p1IsBanker {
		return g.player2
	}
	return g.player1
}

// bankerSeat returns the seat holding the BANKER role this round.
func (g *Game) bankerSeat() *Player {
	if g.p1IsBanker {
		return g.player1
	}
	return g.player2
}

func (g *Game) roleOf(p *Player) string {
	if p == g.bankerSeat() {
		return RoleBanker
	}
	return RolePlayer
}

func (g *Game) playerFor(c *client.Client) *Player {
	if g.player1 != nil && g.player1.Client == c {
		return g.player1
	}
	if g.player2 != nil && g.player2.Client == c {
		return g.player2
	}
	return nil
}

func (g *Game) opponent(p *Player) *Player {
	if p == g.player1 {
		return g.player2
	}
	if p == g.player2 {
		return g.player1
	}
	return nil
}

func (g *Game) notifyHand(p *Player) {
	fields := make([]string, 0, len(p.Hand)+2)
	fields = append(fields, proto.CmdDealCards, strconv.Itoa(len(p.Hand)))
	for _, c := range p.Hand {
		fields = append(fields, c.String())
	}
	_ = p.Client.Queue(fields...)
}

func (g *Game) notifyYourTurn(p *Player) {
	// The second field is a table-card placeholder kept for protocol
	// compatibility.
	_ = p.Client.Queue(proto.CmdYourTurn, "NONE")
}

// notifyGameState sends both seats their perspective of round, scores,
// own role and the role currently holding the turn.
func (g *Game) notifyGameState() {
	turnRole := "WAITING"
	if g.current != nil {
		turnRole = g.roleOf(g.current)
	}

	if g.player1 != nil {
		_ = g.player1.Client.Queue(proto.CmdGameState,
			strconv.Itoa(g.round),
			strconv.Itoa(g.player1.Score),
			strconv.Itoa(g.player2.Score),
			g.roleOf(g.player1),
			turnRole)
	}
	if g.player2 != nil {
		_ = g.player2.Client.Queue(proto.CmdGameState,
			strconv.Itoa(g.round),
			strconv.Itoa(g.player2.Score),
			strconv.Itoa(g.player1.Score),
			g.roleOf(g.player2),
			turnRole)
	}
}

func (g *Game) emit(event string, fields map[string]string) {
	if g.OnStateEvent != nil {
		g.OnStateEvent(event, fields)
	}
}
