package room

import (
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/michroucka/UPS-SP/internal/client"
	"github.com/michroucka/UPS-SP/pkg/proto"
)

type fakeConn struct {
	mu    sync.Mutex
	lines []string
	done  chan struct{}
	once  sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{done: make(chan struct{})} }

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

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func newTestClient(id uint64, nick string) (*client.Client, *fakeConn) {
	fc := newFakeConn()
	c := client.New(id, fc)
	c.Nickname = nick
	return c, fc
}

func drainClient(t *testing.T, c *client.Client, fc *fakeConn) []string {
	t.Helper()
	c.Close()
	<-fc.done
	return fc.received()
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"ok", "herna", nil},
		{"empty", "", ErrEmptyName},
		{"max length", strings.Repeat("a", MaxNameLen), nil},
		{"too long", strings.Repeat("a", MaxNameLen+1), ErrNameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateName(tt.input); err != tt.wantErr {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSeatingAndCapacity(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, _ := newTestClient(2, "bob")
	c3, _ := newTestClient(3, "carol")
	defer c1.Close()
	defer c2.Close()
	defer c3.Close()

	r := New(1, "herna", c1, nil)

	if r.State != StateWaiting {
		t.Fatalf("new room state = %v, want WAITING", r.State)
	}
	if r.IsFull() || r.IsEmpty() {
		t.Fatal("room with one seat taken is neither full nor empty")
	}
	if !r.HasPlayer(c1) {
		t.Fatal("creator should be seated")
	}

	if err := r.AddPlayer(c2); err != nil {
		t.Fatalf("seating second player: %v", err)
	}
	if !r.IsFull() {
		t.Fatal("room should be full with two seats taken")
	}
	if err := r.AddPlayer(c3); err != ErrRoomFull {
		t.Fatalf("third player: got %v, want %v", err, ErrRoomFull)
	}
	if r.Opponent(c1) != c2 {
		t.Error("opponent lookup failed")
	}

	fields := r.ProtocolFields()
	want := []string{"ROOM", "1", "herna", "2", "2", "WAITING"}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("ProtocolFields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}

func TestNameEscapedInProtocolFields(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	defer c1.Close()

	r := New(1, "bad|name", c1, nil)
	if got := r.ProtocolFields()[2]; got != "bad_name" {
		t.Errorf("room name not escaped, got %q", got)
	}
}

func TestStartGameTransitionsState(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, _ := newTestClient(2, "bob")
	defer c1.Close()
	defer c2.Close()

	r := New(2, "herna", c1, nil)
	r.StartGame()
	if r.State != StateWaiting {
		t.Fatal("game must not start with an empty seat")
	}

	if err := r.AddPlayer(c2); err != nil {
		t.Fatal(err)
	}
	r.StartGame()
	if r.State != StatePlaying {
		t.Fatalf("room state = %v, want PLAYING", r.State)
	}
	if err := r.AddPlayer(c1); err != ErrNotWaiting {
		t.Errorf("joining a playing room: got %v, want %v", err, ErrNotWaiting)
	}
}

func TestLeaveMidGameResetsRoom(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	defer c1.Close()

	r := New(3, "herna", c1, nil)
	if err := r.AddPlayer(c2); err != nil {
		t.Fatal(err)
	}
	r.StartGame()

	if err := r.RemovePlayer(c1); err != nil {
		t.Fatalf("removing seated player: %v", err)
	}
	if r.State != StateWaiting {
		t.Fatalf("room state = %v, want WAITING", r.State)
	}
	if r.HasPlayer(c1) {
		t.Error("removed player still seated")
	}
	if !r.HasPlayer(c2) {
		t.Error("opponent must keep the seat and await a new partner")
	}
	if c2.State != proto.StateInRoom {
		t.Errorf("opponent state = %v, want IN_ROOM", c2.State)
	}

	lines := drainClient(t, c2, f2)
	found := false
	for _, l := range lines {
		if l == "OPPONENT_LEFT|alice|LEFT" {
			found = true
		}
	}
	if !found {
		t.Errorf("opponent not notified of departure, got %v", lines)
	}

	// The reset room accepts a replacement and can start a fresh game.
	c3, _ := newTestClient(3, "carol")
	defer c3.Close()
	if err := r.AddPlayer(c3); err != nil {
		t.Fatalf("seating a replacement: %v", err)
	}
	r.StartGame()
	if r.State != StatePlaying {
		t.Fatalf("restarted room state = %v, want PLAYING", r.State)
	}
}

func TestDropForfeitedResetsRoom(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, f2 := newTestClient(2, "bob")
	defer c1.Close()

	r := New(4, "herna", c1, nil)
	if err := r.AddPlayer(c2); err != nil {
		t.Fatal(err)
	}
	r.StartGame()

	r.DropForfeited("alice", "TIMEOUT")
	if r.State != StateWaiting {
		t.Fatalf("room state = %v, want WAITING", r.State)
	}
	if r.HasPlayer(c1) {
		t.Error("forfeited seat must be vacated")
	}
	if c2.State != proto.StateInRoom {
		t.Errorf("remaining player state = %v, want IN_ROOM", c2.State)
	}

	lines := drainClient(t, c2, f2)
	found := false
	for _, l := range lines {
		if l == "OPPONENT_LEFT|alice|TIMEOUT" {
			found = true
		}
	}
	if !found {
		t.Errorf("remaining player not told of forfeit, got %v", lines)
	}
}

func TestReconnectPlayerSwapsSeat(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, _ := newTestClient(2, "bob")
	defer c1.Close()
	defer c2.Close()

	r := New(5, "herna", c1, nil)
	if err := r.AddPlayer(c2); err != nil {
		t.Fatal(err)
	}
	r.StartGame()

	// alice drops and returns on a fresh connection.
	c3, _ := newTestClient(3, "alice")
	defer c3.Close()

	if !r.ReconnectPlayer(c3) {
		t.Fatal("reconnect of a seated nickname must succeed")
	}
	if !r.HasPlayer(c3) || r.HasPlayer(c1) {
		t.Error("seat should now be held by the new connection")
	}
	if !r.Game().HasPlayer(c3) {
		t.Error("game seat should follow the reconnect")
	}

	c4, _ := newTestClient(4, "mallory")
	defer c4.Close()
	if r.ReconnectPlayer(c4) {
		t.Error("unknown nickname must not reconnect")
	}
}

func TestRemoveUnknownPlayer(t *testing.T) {
	c1, _ := newTestClient(1, "alice")
	c2, _ := newTestClient(2, "bob")
	defer c1.Close()
	defer c2.Close()

	r := New(6, "herna", c1, nil)
	if err := r.RemovePlayer(c2); err != ErrNotInRoom {
		t.Errorf("removing outsider: got %v, want %v", err, ErrNotInRoom)
	}
}
