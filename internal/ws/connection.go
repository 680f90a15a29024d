package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// sendBuffer bounds how far a slow reader may fall behind before the
	// connection is dropped. A dropped client resyncs via bootstrap anyway.
	sendBuffer = 64
)

// connection adapts one websocket to the hub's Connection interface. Writes
// go through a buffered channel drained by a single write pump, because
// websocket connections allow only one concurrent writer.
type connection struct {
	id   string
	sock *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConnection(id string, sock *websocket.Conn) *connection {
	return &connection{
		id:     id,
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *connection) ID() string {
	return c.id
}

// Deliver queues a frame without blocking the hub. A full buffer means the
// reader is too slow to be live; the connection is closed and the client is
// expected to reconnect and resync.
func (c *connection) Deliver(frame []byte) {
	select {
	case c.send <- frame:
	case <-c.closed:
	default:
		log.Printf("Connection %s too slow, dropping", c.id)
		c.close()
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.closed:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
