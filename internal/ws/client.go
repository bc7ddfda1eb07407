package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whisper-im/whisper/internal/events"
	"github.com/whisper-im/whisper/internal/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 8192
	sendBufferSize = 64
)

// Client is one live connection. The user binding is set during the
// handshake and is immutable for the connection's lifetime.
type Client struct {
	id     string
	userID string
	hub    *Hub
	conn   *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// trySend queues data for delivery without blocking. A full buffer means the
// consumer is too slow; the caller disconnects it. The mutex pairs with
// closeSend so a fan-out racing a disconnect can never write to a closed
// channel.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once. Only unregister calls it.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump reads frames off the connection and dispatches them to the hub.
// It owns connection teardown: when it returns the client is unregistered
// and the send channel closed.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WarnF("[%s] Read error: %v", c.id, err)
			}
			return
		}

		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.hub.sendError(c, "invalid message format")
			continue
		}
		c.dispatch(ctx, env)
	}
}

func (c *Client) dispatch(ctx context.Context, env events.Envelope) {
	switch env.Type {
	case events.TypeJoinChat:
		var req events.JoinChat
		if err := events.Decode(env, &req); err != nil || req.ChatID == "" {
			c.hub.sendError(c, "chat id is required")
			return
		}
		c.hub.rooms.Join(c.id, ChatRoom(req.ChatID))
	case events.TypeLeaveChat:
		var req events.LeaveChat
		if err := events.Decode(env, &req); err != nil || req.ChatID == "" {
			c.hub.sendError(c, "chat id is required")
			return
		}
		c.hub.rooms.Leave(c.id, ChatRoom(req.ChatID))
	case events.TypeSendMessage:
		var req events.SendMessage
		if err := events.Decode(env, &req); err != nil {
			c.hub.sendError(c, "invalid message format")
			return
		}
		c.hub.handleSendMessage(ctx, c, req)
	case events.TypeTyping:
		var req events.Typing
		if err := events.Decode(env, &req); err != nil || req.ChatID == "" {
			return
		}
		c.hub.handleTyping(ctx, c, req)
	default:
		logger.DebugF("[%s] Unknown event type %q", c.id, env.Type)
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings. It exits when the send channel is closed.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
