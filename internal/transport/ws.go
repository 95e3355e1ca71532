package transport

import (
	"strings"

	"github.com/gorilla/websocket"

	"github.com/michroucka/UPS-SP/pkg/proto"
)

// WSConn carries the same line protocol over a WebSocket: each text frame
// holds one or more terminated messages. It satisfies Conn so the hub treats
// WebSocket peers exactly like TCP peers.
type WSConn struct {
	conn    *websocket.Conn
	pending []string
}

// NewWSConn wraps an upgraded WebSocket connection.
func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) ReadLine() (string, error) {
	for len(c.pending) == 0 {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if len(payload) > proto.MaxBufferedSize {
			return "", proto.ErrBufferOverflow
		}
		for _, line := range strings.Split(string(payload), string(proto.Terminator)) {
			if line != "" {
				c.pending = append(c.pending, line)
			}
		}
	}
	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

func (c *WSConn) WriteLine(line string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}

func (c *WSConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
