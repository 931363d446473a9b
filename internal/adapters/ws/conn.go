package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bokoth/chatrelay/internal/core"
)

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// chatConn is one live transport session. It implements
// core.ClientConnection; the send channel is drained by the write pump.
type chatConn struct {
	id   core.ConnID
	conn WSConn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newChatConn(id core.ConnID, conn WSConn, buffer int) *chatConn {
	if buffer <= 0 {
		buffer = 64
	}
	return &chatConn{
		id:   id,
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *chatConn) ID() core.ConnID { return c.id }

func (c *chatConn) TrySend(f core.Frame) error {
	if f == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *chatConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
