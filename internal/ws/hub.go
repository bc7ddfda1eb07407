// Package ws implements the realtime core: the websocket handshake, the
// presence registry, room routing and the message relay. One goroutine pair
// serves each connection; shared state lives in Presence and RoomRouter
// behind short lock sections, never holding a lock across store I/O.
package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/whisper-im/whisper/internal/auth"
	"github.com/whisper-im/whisper/internal/events"
	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store"
)

type Hub struct {
	presence *Presence
	rooms    *RoomRouter
	store    store.Store
	verifier auth.Verifier
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*Client // connID -> Client
}

func NewHub(st store.Store, verifier auth.Verifier, allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return &Hub{
		presence: NewPresence(),
		rooms:    NewRoomRouter(),
		store:    st,
		verifier: verifier,
		clients:  make(map[string]*Client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Presence exposes the registry for the HTTP layer.
func (h *Hub) Presence() *Presence { return h.presence }

// ServeWS authenticates the handshake and upgrades the connection. The token
// comes from the Authorization header or a token query parameter. A bad or
// missing token refuses the connection before any registration happens.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	externalID, err := h.verifier.VerifyToken(r.Context(), token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.store.FindUserByExternalID(r.Context(), externalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WarnF("WebSocket upgrade error: %v", err)
		return
	}

	client := newClient(h, conn, user.ID)
	go client.writePump()
	h.register(client)
	go client.readPump()
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// register records the new connection. Ordering matters twice over: the
// client enters the broadcast set before the snapshot is taken, so a
// concurrent registration's delta can never fall between the two (a delta
// already absorbed into the snapshot is applied again harmlessly), and the
// snapshot is queued before the client's own online registration is
// broadcast, so its view initializes consistently with the delta stream and
// never includes itself.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	snapshot, err := events.Marshal(events.TypeOnlineUsers, events.OnlineUsers{UserIDs: h.presence.Snapshot(c.userID)})
	if err == nil {
		c.trySend(snapshot)
	}

	if h.presence.MarkOnline(c.userID, c.id) {
		logger.DebugF("[%s] Presence entry for user %s overwritten", c.id, c.userID)
	}
	h.broadcastAll(events.TypeUserOnline, events.UserOnline{UserID: c.userID}, c.id)

	h.rooms.Join(c.id, UserRoom(c.userID))
	logger.InfoF("[%s] User %s connected", c.id, c.userID)
}

// unregister tears down all room memberships and the presence entry. The
// offline broadcast is suppressed when a newer connection from the same user
// already replaced the presence entry.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	h.rooms.LeaveAll(c.id)
	if h.presence.MarkOffline(c.userID, c.id) {
		h.broadcastAll(events.TypeUserOffline, events.UserOffline{UserID: c.userID}, c.id)
	}

	c.closeSend()
	logger.InfoF("[%s] User %s disconnected", c.id, c.userID)
}

// handleSendMessage validates, persists and fans out one message. Any
// failure emits a scoped socket-error to the sender only and performs no
// partial fan-out.
func (h *Hub) handleSendMessage(ctx context.Context, c *Client, req events.SendMessage) {
	text := strings.TrimSpace(req.Text)
	if req.ChatID == "" || text == "" {
		h.sendError(c, "message text is required")
		return
	}

	// Membership is enforced here: the lookup is filtered to chats the
	// sender participates in.
	chat, err := h.store.FindChatForParticipant(ctx, req.ChatID, c.userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.sendError(c, "chat not found")
		} else {
			logger.ErrorF("[%s] Chat lookup failed: %v", c.id, err)
			h.sendError(c, "failed to send message")
		}
		return
	}

	// Resolve the sender identity once so receiving clients can render the
	// message without another round trip.
	sender, err := h.store.FindUserByID(ctx, c.userID)
	if err != nil {
		logger.ErrorF("[%s] Sender lookup failed: %v", c.id, err)
		h.sendError(c, "failed to send message")
		return
	}

	msg, err := h.store.CreateMessage(ctx, chat.ID, models.MessageSender{
		ID:     sender.ID,
		Name:   sender.Name,
		Avatar: sender.Avatar,
	}, text)
	if err != nil {
		logger.ErrorF("[%s] Message persist failed: %v", c.id, err)
		h.sendError(c, "failed to send message")
		return
	}

	if err := h.store.UpdateChatLastMessage(ctx, chat.ID, msg.ID, msg.CreatedAt); err != nil {
		logger.ErrorF("[%s] Chat update failed: %v", c.id, err)
		h.sendError(c, "failed to send message")
		return
	}

	data, err := events.Marshal(events.TypeNewMessage, msg)
	if err != nil {
		h.sendError(c, "failed to send message")
		return
	}

	// One emission to the chat room (whoever is viewing it) and one per
	// participant user room (reaches participants on any screen, for unread
	// marking). A connection joined to both paths receives the event twice;
	// clients deduplicate by message id.
	h.emitToRoom(ChatRoom(chat.ID), data, "")
	for _, participantID := range chat.Participants {
		h.emitToRoom(UserRoom(participantID), data, "")
	}
}

// handleTyping relays a typing signal to the chat room and the participant
// user rooms, excluding the sender's own connection. The server keeps no
// typing state and runs no timers; expiry is client-driven.
func (h *Hub) handleTyping(ctx context.Context, c *Client, req events.Typing) {
	payload := events.Typing{UserID: c.userID, ChatID: req.ChatID, IsTyping: req.IsTyping}
	data, err := events.Marshal(events.TypeTyping, payload)
	if err != nil {
		return
	}

	h.emitToRoom(ChatRoom(req.ChatID), data, c.id)

	chat, err := h.store.FindChatForParticipant(ctx, req.ChatID, c.userID)
	if err != nil {
		// Chat room delivery already happened; nothing more to reach.
		return
	}
	for _, participantID := range chat.Participants {
		h.emitToRoom(UserRoom(participantID), data, c.id)
	}
}

func (h *Hub) sendError(c *Client, message string) {
	data, err := events.Marshal(events.TypeSocketError, events.SocketError{Message: message})
	if err != nil {
		return
	}
	if !c.trySend(data) {
		h.drop(c)
	}
}

// emitToRoom delivers data to every member of room except exceptConnID.
func (h *Hub) emitToRoom(room string, data []byte, exceptConnID string) {
	for _, connID := range h.rooms.Members(room) {
		if connID == exceptConnID {
			continue
		}
		h.mu.Lock()
		client, ok := h.clients[connID]
		h.mu.Unlock()
		if !ok {
			continue
		}
		if !client.trySend(data) {
			h.drop(client)
		}
	}
}

// broadcastAll delivers a presence delta to every connected client except
// exceptConnID.
func (h *Hub) broadcastAll(eventType string, payload any, exceptConnID string) {
	data, err := events.Marshal(eventType, payload)
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if client.id != exceptConnID {
			targets = append(targets, client)
		}
	}
	h.mu.Unlock()

	for _, client := range targets {
		if !client.trySend(data) {
			h.drop(client)
		}
	}
}

// drop closes a slow consumer's connection; the read pump then runs the
// normal unregister path exactly once.
func (h *Hub) drop(c *Client) {
	logger.WarnF("[%s] Send buffer full, dropping connection", c.id)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
