package transport

import (
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
)

// Registrar receives newly accepted connections. The hub implements it; the
// connection-cap check happens there, on the goroutine that owns the
// connection table.
type Registrar interface {
	Register(conn Conn)
}

// Listener accepts raw TCP connections and hands them to a Registrar.
type Listener struct {
	addr    string
	ln      net.Listener
	handler Registrar
	running atomic.Bool
}

// NewListener creates a listener bound once Start is called.
func NewListener(addr string, handler Registrar) *Listener {
	return &Listener{addr: addr, handler: handler}
}

// Start binds the address and begins the accept loop in a goroutine.
func (l *Listener) Start() error {
	if l.running.Load() {
		return fmt.Errorf("listener already running on %s", l.addr)
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", l.addr, err)
	}
	l.ln = ln
	l.running.Store(true)

	slog.Info("tcp listener started", "addr", l.addr)
	go l.acceptLoop()
	return nil
}

func (l *Listener) acceptLoop() {
	for l.running.Load() {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.running.Load() {
				return
			}
			slog.Error("accept failed", "error", err)
			continue
		}
		l.handler.Register(NewTCPConn(conn))
	}
}

// Stop closes the listening socket. Established connections are unaffected.
func (l *Listener) Stop() {
	if !l.running.Swap(false) {
		return
	}
	if l.ln != nil {
		_ = l.ln.Close()
	}
	slog.Info("tcp listener stopped", "addr", l.addr)
}

// Addr returns the bound address, valid after Start.
func (l *Listener) Addr() string {
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}
