package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Vishalkumjan/realtime-code-collab/internal/collab"
)

var (
	errConnClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsConn wraps one gorilla connection behind the broker's Conn
// interface. All writes go through the send channel and a single
// write loop; Send never blocks the broker.
type wsConn struct {
	id   string
	conn *websocket.Conn

	send      chan collab.Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(id string, conn *websocket.Conn, sendBuffer int) *wsConn {
	return &wsConn{
		id:     id,
		conn:   conn,
		send:   make(chan collab.Message, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send enqueues for the write loop. A full buffer means the peer
// stopped draining; the message is dropped rather than stalling every
// other member's broadcast.
func (c *wsConn) Send(msg collab.Message) error {
	select {
	case <-c.closed:
		return errConnClosed
	case c.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return c.conn.Close()
}

// writeLoop owns the websocket write side: queued messages plus
// periodic pings. Exits when the connection closes or a write fails.
func (c *wsConn) writeLoop(pingPeriod, writeWait time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
