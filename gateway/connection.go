// Package gateway is the WebSocket boundary of the chat system: it upgrades
// and authenticates connections, pumps frames in and out, routes inbound
// envelopes and broadcasts presence transitions.
package gateway

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Connection is one physical duplex channel, owned by exactly one identity
// for its whole lifetime. Outbound frames go through a buffered channel
// drained by writePump; inbound frames are read by readPump in the
// connection's own goroutine. Control frames (ping, close) bypass the queue
// via WriteControl, which gorilla allows concurrently with other writes.
type Connection struct {
	conn      *websocket.Conn
	log       *slog.Logger
	userID    string
	username  string
	createdAt time.Time
	pongWait  time.Duration

	send chan []byte
	done chan struct{}

	awaitingPong atomic.Bool
	closeOnce    sync.Once
}

func newConnection(conn *websocket.Conn, userID, username string,
	bufferSize int, pongWait time.Duration, log *slog.Logger) *Connection {
	return &Connection{
		conn:      conn,
		log:       log,
		userID:    userID,
		username:  username,
		createdAt: time.Now().UTC(),
		pongWait:  pongWait,
		send:      make(chan []byte, bufferSize),
		done:      make(chan struct{}),
	}
}

func (c *Connection) UserID() string   { return c.userID }
func (c *Connection) Username() string { return c.username }

// Enqueue hands a payload to the write pump without ever blocking the caller.
// A full buffer means the peer stopped draining; the connection is closed and
// reclaimed through the usual disconnect path.
func (c *Connection) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- payload:
		return true
	default:
		c.log.Warn("Outbound buffer full, dropping connection", "user_id", c.userID)
		c.Close(websocket.CloseGoingAway, "outbound buffer full")
		return false
	}
}

// Ping sends a liveness probe as a control frame.
func (c *Connection) Ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *Connection) AwaitingPong() bool { return c.awaitingPong.Load() }

func (c *Connection) MarkAwaitingPong() { c.awaitingPong.Store(true) }

// Close sends a close frame with the given code and tears the transport down.
// Safe to call from any goroutine and any number of times; the first caller
// wins. readPump unblocks with an error, which drives the disconnect path.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(writeWait)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}

// writePump drains the outbound queue onto the wire. It is the only
// goroutine calling WriteMessage on this connection.
func (c *Connection) writePump() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("Write failed", "user_id", c.userID, "err", err)
				return
			}
		}
	}
}

// readPump feeds every inbound frame to handle, in arrival order, until the
// connection dies. Pongs clear the liveness flag and extend the read deadline.
func (c *Connection) readPump(maxFrameSize int64, handle func(raw []byte)) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.awaitingPong.Store(false)
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("Read loop ended", "user_id", c.userID, "err", err)
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		handle(raw)
	}
}
