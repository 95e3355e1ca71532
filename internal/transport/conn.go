// Package transport provides the line-oriented connection abstraction and
// its TCP and WebSocket implementations.
package transport

import (
	"net"

	"github.com/michroucka/UPS-SP/pkg/proto"
)

// Conn is one peer's transport, framed into protocol lines. ReadLine blocks
// until a complete message arrives; WriteLine sends one complete message.
// Implementations must be safe for one concurrent reader and one concurrent
// writer.
type Conn interface {
	// ReadLine returns the next complete message without its terminator.
	ReadLine() (string, error)
	// WriteLine sends one message; the line must already carry its terminator.
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// TCPConn frames a raw TCP stream using the protocol buffer, enforcing the
// unread-size cap on append.
type TCPConn struct {
	conn net.Conn
	buf  proto.Buffer
	read [1024]byte
}

// NewTCPConn wraps an accepted TCP connection.
func NewTCPConn(conn net.Conn) *TCPConn {
	return &TCPConn{conn: conn}
}

// ReadLine reads from the socket until one complete message is buffered.
// It returns proto.ErrBufferOverflow when the peer exceeds the buffer cap.
func (c *TCPConn) ReadLine() (string, error) {
	for {
		if msg, ok := c.buf.ExtractMessage(); ok {
			return msg, nil
		}
		n, err := c.conn.Read(c.read[:])
		if n > 0 {
			if appendErr := c.buf.Append(c.read[:n]); appendErr != nil {
				return "", appendErr
			}
		}
		if err != nil {
			// A complete message may have arrived together with the error.
			if msg, ok := c.buf.ExtractMessage(); ok {
				return msg, nil
			}
			return "", err
		}
	}
}

func (c *TCPConn) WriteLine(line string) error {
	_, err := c.conn.Write([]byte(line))
	return err
}

func (c *TCPConn) Close() error {
	return c.conn.Close()
}

func (c *TCPConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
