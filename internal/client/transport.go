package client

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one live notification-channel connection. ReadMessage blocks until
// a frame arrives or the connection dies.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens notification-channel connections. The session state machine
// only ever talks to these interfaces, so it can be driven in tests without
// a real socket.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer is the production Dialer backed by gorilla/websocket.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
}

func (d WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	wd := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := wd.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
