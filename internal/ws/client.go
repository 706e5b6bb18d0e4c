// Package ws – Client
//
// One Client per live websocket connection. The read pump parses inbound
// envelopes and dispatches them to the hub; events for a single connection
// are handled sequentially while different connections proceed concurrently.
// The write pump drains the client's buffered send channel and keeps the
// connection alive with pings. Outbound frames are enqueued non-blocking so
// one stalled peer never delays delivery to others.
package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client binds one websocket connection to one authenticated user for the
// connection's lifetime.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string

	send chan []byte
	done chan struct{}
	once sync.Once
}

// NewClient wraps an upgraded connection that has passed the gatekeeper.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// UserID returns the authenticated user bound to this connection.
func (c *Client) UserID() string { return c.userID }

// shutdown signals the write pump to exit. Idempotent.
func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// enqueue offers a frame to the client's send buffer without blocking.
// It reports false when the client is gone or the buffer is full; the frame
// is then dropped for this recipient only.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendEvent encodes and enqueues an outbound event for this client only.
func (c *Client) sendEvent(event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode ws event")
		return
	}
	c.enqueue(frame)
}

// sendError emits the error event to this client. Errors are never broadcast.
func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}

// ReadPump consumes inbound frames until the connection drops, dispatching
// each envelope to the hub. Closing the connection acts as an implicit
// disconnect: the client leaves every room and its metadata is discarded.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Disconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", c.userID).Msg("ws read error")
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("Invalid message format")
			continue
		}

		switch env.Event {
		case EventJoinGroup:
			c.hub.Join(ctx, c, env.GroupID)
		case EventSendMessage:
			c.hub.Send(ctx, c, env.GroupID, env.Text)
		case EventLeaveGroup:
			c.hub.Leave(c, env.GroupID)
		default:
			c.sendError("Unknown event")
		}
	}
}

// WritePump writes queued frames and periodic pings until the client is
// shut down or the connection fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}
