package game

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/michroucka/UPS-SP/internal/card"
	"github.com/michroucka/UPS-SP/internal/client"
)

// fakeConn records written lines and signals when it is closed.
type fakeConn struct {
	mu    sync.Mutex
	lines []string
	done  chan struct{}
	once  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{done: make(chan struct{})}
}

func (f *fakeConn) ReadLine() (string, error) {
	<-f.done
	return "", io.EOF
}

func (f *fakeConn) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, strings.TrimSuffix(line, "\n"))
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "test:0" }

func newTestClient(id uint64, nick string) (*client.Client, *fakeConn) {
	fc := newFakeConn()
	c := client.New(id, fc)
	c.Nickname = nick
	return c, fc
}

// drain closes the client, waits for the write loop to flush everything to
// the fake connection and returns the captured lines.
func drain(t *testing.T, c *client.Client, fc *fakeConn) []string {
	t.Helper()
	c.Close()
	select {
	case <-fc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("write loop did not flush in time")
	}
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return append([]string(nil), fc.lines...)
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func containsPrefix(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

func ten(s card.Suit) card.Card   { return card.Card{Suit: s, Rank: card.Deset} }
func nine(s card.Suit) card.Card  { return card.Card{Suit: s, Rank: card.Devet} }
func eight(s card.Suit) card.Card { return card.Card{Suit: s, Rank: card.Osm} }
func seven(s card.Suit) card.Card { return card.Card{Suit: s, Rank: card.Sedm} }
func ace(s card.Suit) card.Card   { return card.Card{Suit: s, Rank: card.Eso} }

func TestStartAssignsRolesAndDeals(t *testing.T) {
	g := New(1)
	c1, f1 := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	if !g.CanStart() {
		t.Fatal("two seated players should allow a start")
	}

	// Deal order is player, banker, player, banker.
	g.deck = card.Stacked(
		ten(card.Srdce), nine(card.Srdce),
		ten(card.Kule), eight(card.Srdce),
	)
	g.Start()

	lines1 := drain(t, c1, f1)
	lines2 := drain(t, c2, f2)

	if !contains(lines1, "GAME_START|PLAYER|bob") {
		t.Errorf("player 1 missing role announcement, got %v", lines1)
	}
	if !contains(lines2, "GAME_START|BANKER|alice") {
		t.Errorf("player 2 missing role announcement, got %v", lines2)
	}
	if !contains(lines1, "DEAL_CARDS|2|SRDCE-DESET|KULE-DESET") {
		t.Errorf("player 1 missing deal, got %v", lines1)
	}
	if !contains(lines2, "DEAL_CARDS|2|SRDCE-DEVET|SRDCE-OSM") {
		t.Errorf("player 2 missing deal, got %v", lines2)
	}
	if !contains(lines1, "GAME_STATE|1|0|0|PLAYER|PLAYER") {
		t.Errorf("player 1 missing state, got %v", lines1)
	}
	if !contains(lines2, "GAME_STATE|1|0|0|BANKER|PLAYER") {
		t.Errorf("player 2 missing state, got %v", lines2)
	}
	if !contains(lines1, "YOUR_TURN|NONE") {
		t.Errorf("player 1 should hold the first turn, got %v", lines1)
	}
	if contains(lines2, "YOUR_TURN|NONE") {
		t.Errorf("banker must not hold the first turn, got %v", lines2)
	}
}

func TestHitBust(t *testing.T) {
	g := New(2)
	c1, f1 := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	// Player holds 20 and busts on the third ten; banker holds 17.
	g.deck = card.Stacked(
		ten(card.Srdce), nine(card.Srdce),
		ten(card.Kule), eight(card.Srdce),
		ten(card.Listy),
	)
	g.Start()

	if err := g.Hit(c1); err != nil {
		t.Fatalf("hit on own turn: %v", err)
	}

	lines1 := drain(t, c1, f1)
	lines2 := drain(t, c2, f2)

	if !contains(lines1, "CARD|LISTY-DESET") {
		t.Errorf("player 1 missing drawn card, got %v", lines1)
	}
	if !contains(lines2, "OPPONENT_ACTION|HIT|") {
		t.Errorf("player 2 missing hit notification, got %v", lines2)
	}
	if !contains(lines2, "OPPONENT_ACTION|BUSTED|") {
		t.Errorf("player 2 missing bust notification, got %v", lines2)
	}
	if !contains(lines1, "ROUND_END|OPPONENT|30|17|SRDCE-DESET,KULE-DESET,LISTY-DESET|SRDCE-DEVET,SRDCE-OSM") {
		t.Errorf("player 1 missing round result, got %v", lines1)
	}
	if !containsPrefix(lines2, "ROUND_END|YOU|17|30|") {
		t.Errorf("player 2 missing round result, got %v", lines2)
	}
}

func TestTieGoesToBanker(t *testing.T) {
	g := New(3)
	c1, f1 := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	// Both seats hold 20; the tie falls to the banker, seat 2 in round one.
	g.deck = card.Stacked(
		ten(card.Srdce), ten(card.Listy),
		ten(card.Kule), ten(card.Zaludy),
	)
	g.Start()

	if err := g.Stand(c1); err != nil {
		t.Fatalf("player stand: %v", err)
	}
	if err := g.Stand(c2); err != nil {
		t.Fatalf("banker stand: %v", err)
	}

	lines1 := drain(t, c1, f1)
	lines2 := drain(t, c2, f2)

	if !containsPrefix(lines1, "ROUND_END|OPPONENT|20|20|") {
		t.Errorf("tie must go to the banker, player 1 got %v", lines1)
	}
	if !containsPrefix(lines2, "ROUND_END|YOU|20|20|") {
		t.Errorf("tie must go to the banker, player 2 got %v", lines2)
	}
}

func TestDoubleAceStandsAutomatically(t *testing.T) {
	g := New(4)
	c1, f1 := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	// Player is dealt two aces and must stand without acting; the banker
	// then plays out 17 and loses to the fixed 21.
	g.deck = card.Stacked(
		ace(card.Srdce), nine(card.Srdce),
		ace(card.Kule), eight(card.Srdce),
	)
	g.Start()

	if err := g.Stand(c2); err != nil {
		t.Fatalf("banker stand: %v", err)
	}

	lines1 := drain(t, c1, f1)
	lines2 := drain(t, c2, f2)

	if !contains(lines1, "OK") {
		t.Errorf("auto-stand must be acknowledged, got %v", lines1)
	}
	if !contains(lines2, "OPPONENT_ACTION|STAND|") {
		t.Errorf("banker missing stand notification, got %v", lines2)
	}
	if !containsPrefix(lines1, "ROUND_END|YOU|21|17|") {
		t.Errorf("double ace must count 21, got %v", lines1)
	}
}

func TestTurnEnforcement(t *testing.T) {
	g := New(5)
	c1, _ := newTestClient(1, "alice")
	c2, _ := newTestClient(2, "bob")
	c3, _ := newTestClient(3, "carol")
	defer c1.Close()
	defer c2.Close()
	defer c3.Close()

	g.AddPlayer(c1)
	g.AddPlayer(c2)

	if err := g.Hit(c1); err != ErrNotPlaying {
		t.Errorf("hit before start: got %v, want %v", err, ErrNotPlaying)
	}

	g.deck = card.Stacked(
		ten(card.Srdce), nine(card.Srdce),
		ten(card.Kule), eight(card.Srdce),
	)
	g.Start()

	if err := g.Hit(c3); err != ErrNotInGame {
		t.Errorf("hit from outsider: got %v, want %v", err, ErrNotInGame)
	}
	if err := g.Hit(c2); err != ErrNotYourTurn {
		t.Errorf("banker hit on player turn: got %v, want %v", err, ErrNotYourTurn)
	}
	if err := g.Stand(c1); err != nil {
		t.Fatalf("player stand: %v", err)
	}
	if err := g.Stand(c1); err != ErrNotYourTurn {
		t.Errorf("stand after standing: got %v, want %v", err, ErrNotYourTurn)
	}
}

func TestGameEndsAtThreeRoundWins(t *testing.T) {
	g := New(6)
	c1, f1 := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	var (
		evMu   sync.Mutex
		events []string
	)
	g.OnStateEvent = func(event string, fields map[string]string) {
		evMu.Lock()
		events = append(events, event)
		evMu.Unlock()
	}

	// Three rounds, all won by seat 1. The banker role alternates, so the
	// deal order flips each round.
	g.deck = card.Stacked(
		// Round 1: seat 1 plays first and holds 20 to 17.
		ten(card.Srdce), nine(card.Srdce),
		ten(card.Kule), eight(card.Srdce),
		// Round 2: seat 2 plays first and holds 17 to 20.
		nine(card.Kule), ten(card.Listy),
		eight(card.Kule), ten(card.Zaludy),
		// Round 3: seat 1 plays first and holds 20 to 15.
		ace(card.Srdce), seven(card.Srdce),
		nine(card.Listy), eight(card.Listy),
	)
	g.Start()

	// Round 1.
	if err := g.Stand(c1); err != nil {
		t.Fatalf("round 1 player stand: %v", err)
	}
	if err := g.Stand(c2); err != nil {
		t.Fatalf("round 1 banker stand: %v", err)
	}
	// Round 2: seat 2 holds the player role now.
	if err := g.Stand(c2); err != nil {
		t.Fatalf("round 2 player stand: %v", err)
	}
	if err := g.Stand(c1); err != nil {
		t.Fatalf("round 2 banker stand: %v", err)
	}
	// Round 3.
	if err := g.Stand(c1); err != nil {
		t.Fatalf("round 3 player stand: %v", err)
	}
	if err := g.Stand(c2); err != nil {
		t.Fatalf("round 3 banker stand: %v", err)
	}

	if !g.IsOver() {
		t.Fatal("game should end after three round wins")
	}

	lines1 := drain(t, c1, f1)
	lines2 := drain(t, c2, f2)

	if !contains(lines1, "GAME_END|YOU|3|0") {
		t.Errorf("winner missing game end, got %v", lines1)
	}
	if !contains(lines2, "GAME_END|OPPONENT|0|3") {
		t.Errorf("loser missing game end, got %v", lines2)
	}

	evMu.Lock()
	got := strings.Join(events, ",")
	evMu.Unlock()
	if got != "game_start,round_end,round_end,round_end,game_end" {
		t.Errorf("unexpected state events: %s", got)
	}
}

func TestRebindAndResumeSync(t *testing.T) {
	g := New(7)
	c1, _ := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	defer c1.Close()
	g.AddPlayer(c1)
	g.AddPlayer(c2)

	g.deck = card.Stacked(
		ten(card.Srdce), nine(card.Srdce),
		ten(card.Kule), eight(card.Srdce),
	)
	g.Start()

	if g.Rebind("mallory", nil) {
		t.Error("rebinding an unknown nickname must fail")
	}

	c3, f3 := newTestClient(3, "alice")
	if !g.Rebind("alice", c3) {
		t.Fatal("rebinding a seated nickname must succeed")
	}
	if !g.HasPlayer(c3) {
		t.Error("rebound client should now hold the seat")
	}
	if g.HasPlayer(c1) {
		t.Error("old connection must no longer hold the seat")
	}
	if g.OpponentOf(c3) != c2 {
		t.Error("opponent lookup should survive the rebind")
	}
	if got := g.OpponentNickname("alice"); got != "bob" {
		t.Errorf("OpponentNickname(alice) = %q, want bob", got)
	}
	if got := g.OpponentNickname("mallory"); got != "" {
		t.Errorf("OpponentNickname(mallory) = %q, want empty", got)
	}

	// The replay reaches both seats, not just the rebound one.
	g.ResumeSync()
	lines3 := drain(t, c3, f3)
	lines2 := drain(t, c2, f2)

	if !contains(lines3, "GAME_START|PLAYER|bob") {
		t.Errorf("replay missing game start, got %v", lines3)
	}
	if !contains(lines3, "GAME_STATE|1|0|0|PLAYER|PLAYER") {
		t.Errorf("replay missing game state, got %v", lines3)
	}
	if !contains(lines3, "DEAL_CARDS|2|SRDCE-DESET|KULE-DESET") {
		t.Errorf("replay missing hand, got %v", lines3)
	}
	if !contains(lines3, "YOUR_TURN|NONE") {
		t.Errorf("replay missing turn, got %v", lines3)
	}

	if !contains(lines2, "GAME_START|BANKER|alice") {
		t.Errorf("opponent replay missing game start, got %v", lines2)
	}
	if !contains(lines2, "DEAL_CARDS|2|SRDCE-DEVET|SRDCE-OSM") {
		t.Errorf("opponent replay missing hand, got %v", lines2)
	}
	if containsPrefix(lines2, "YOUR_TURN|") {
		t.Errorf("turn replay went to the wrong seat, got %v", lines2)
	}
}
