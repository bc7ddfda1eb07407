// Package client implements the client-side synchronization store: it owns
// the socket connection, the presence and typing views, the unread set, and
// the reconciliation of optimistic messages against server-confirmed ones.
// One Store instance exists per signed-in session; all mutation goes through
// a single mutex so updates are applied one at a time in arrival order.
package client

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/whisper-im/whisper/internal/events"
	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/models"
)

// ConnState is the connection lifecycle state. Connected is re-entered
// automatically when the run loop redials after a transport failure; no
// distinct reconnecting state is modeled.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

const (
	tempIDPrefix   = "temp-"
	redialInterval = 2 * time.Second
)

type pendingSend struct {
	chatID string
	tempID string
}

type Store struct {
	url    string
	dialer *websocket.Dialer
	redial time.Duration // fixed backoff between dial attempts

	mu            sync.Mutex
	conn          *websocket.Conn
	state         ConnState
	generation    int
	self          models.MessageSender
	onlineUsers   map[string]bool
	typingUsers   map[string]string // chatID -> userID currently typing
	unreadChats   map[string]bool
	currentChatID string
	messages      map[string][]models.Message
	pending       []pendingSend // outstanding optimistic sends, oldest first
	lastError     string
	subscribers   []chan struct{}
}

// New creates a store that connects to the websocket endpoint at url.
func New(url string) *Store {
	return &Store{
		url:         url,
		dialer:      websocket.DefaultDialer,
		redial:      redialInterval,
		onlineUsers: make(map[string]bool),
		typingUsers: make(map[string]string),
		unreadChats: make(map[string]bool),
		messages:    make(map[string][]models.Message),
	}
}

// Subscribe returns a channel that receives a signal after every state
// change. The channel is buffered; a slow subscriber misses intermediate
// signals, not the latest state.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{}, 1)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// notifyLocked signals subscribers. Callers hold the mutex.
func (s *Store) notifyLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Connect establishes the socket connection. It is a no-op while a
// connection is already live or being established, and idempotent under
// rapid re-invocation. Any prior connection is disposed first.
func (s *Store) Connect(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	s.generation++
	s.state = StateConnecting
	s.notifyLocked()
	go s.run(token, s.generation)
}

// run dials and reads until Disconnect. Transport failures redial with a
// fixed backoff; presence, typing and unread state survive reconnects, and
// the online-users snapshot is replaced wholesale on re-receipt.
func (s *Store) run(token string, generation int) {
	for {
		header := http.Header{"Authorization": []string{"Bearer " + token}}
		conn, _, err := s.dialer.Dial(s.url, header)

		s.mu.Lock()
		if generation != s.generation {
			s.mu.Unlock()
			if conn != nil {
				_ = conn.Close()
			}
			return
		}
		if err != nil {
			s.mu.Unlock()
			logger.WarnF("Socket dial failed: %v", err)
			time.Sleep(s.redial)
			continue
		}
		s.conn = conn
		s.state = StateConnected
		if s.currentChatID != "" {
			// Room membership is per connection; restore the viewed chat's
			// room on the new one.
			s.emitLocked(events.TypeJoinChat, events.JoinChat{ChatID: s.currentChatID})
		}
		s.notifyLocked()
		s.mu.Unlock()

		s.readLoop(conn, generation)

		s.mu.Lock()
		if generation != s.generation {
			s.mu.Unlock()
			return
		}
		s.conn = nil
		s.state = StateConnecting
		s.notifyLocked()
		s.mu.Unlock()

		time.Sleep(s.redial)
	}
}

func (s *Store) readLoop(conn *websocket.Conn, generation int) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			return
		}

		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.WarnF("Discarding malformed frame: %v", err)
			continue
		}
		s.handleEvent(env, generation)
	}
}

// Disconnect closes the connection and resets all session state.
func (s *Store) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.state = StateDisconnected
	s.onlineUsers = make(map[string]bool)
	s.typingUsers = make(map[string]string)
	s.unreadChats = make(map[string]bool)
	s.messages = make(map[string][]models.Message)
	s.pending = nil
	s.currentChatID = ""
	s.notifyLocked()
}

// JoinChat marks the chat as the one being viewed, clears its unread marker
// and joins its server-side room.
func (s *Store) JoinChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentChatID = chatID
	delete(s.unreadChats, chatID)
	s.emitLocked(events.TypeJoinChat, events.JoinChat{ChatID: chatID})
	s.notifyLocked()
}

// LeaveChat leaves the chat's server-side room. Advisory; no timeout.
func (s *Store) LeaveChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.currentChatID = ""
	s.emitLocked(events.TypeLeaveChat, events.LeaveChat{ChatID: chatID})
	s.notifyLocked()
}

// SendMessage inserts an optimistic entry immediately so the UI updates
// before the network round trip, then emits the send request. The entry is
// replaced by the authoritative echo or rolled back on a socket-error.
func (s *Store) SendMessage(chatID, text string, self models.MessageSender) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return
	}
	s.self = self

	tempID := tempIDPrefix + uuid.NewString()
	optimistic := models.Message{
		ID:        tempID,
		ChatID:    chatID,
		Sender:    self,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.messages[chatID] = append(s.messages[chatID], optimistic)
	s.pending = append(s.pending, pendingSend{chatID: chatID, tempID: tempID})

	s.emitLocked(events.TypeSendMessage, events.SendMessage{ChatID: chatID, Text: text})
	s.notifyLocked()
}

// SendTyping is fire-and-forget; it changes no local state.
func (s *Store) SendTyping(chatID string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked(events.TypeTyping, events.Typing{ChatID: chatID, IsTyping: isTyping})
}

func (s *Store) emitLocked(eventType string, payload any) {
	if s.conn == nil {
		return
	}
	data, err := events.Marshal(eventType, payload)
	if err != nil {
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logger.WarnF("Socket write failed: %v", err)
	}
}

// handleEvent applies one inbound event. Events are processed one at a time
// in arrival order; the mutex guarantees an update never interleaves with
// another.
func (s *Store) handleEvent(env events.Envelope, generation int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		return
	}

	switch env.Type {
	case events.TypeOnlineUsers:
		var payload events.OnlineUsers
		if events.Decode(env, &payload) != nil {
			return
		}
		s.onlineUsers = make(map[string]bool, len(payload.UserIDs))
		for _, userID := range payload.UserIDs {
			s.onlineUsers[userID] = true
		}
	case events.TypeUserOnline:
		var payload events.UserOnline
		if events.Decode(env, &payload) != nil {
			return
		}
		s.onlineUsers[payload.UserID] = true
	case events.TypeUserOffline:
		var payload events.UserOffline
		if events.Decode(env, &payload) != nil {
			return
		}
		delete(s.onlineUsers, payload.UserID)
	case events.TypeNewMessage:
		var msg models.Message
		if events.Decode(env, &msg) != nil {
			return
		}
		s.applyMessageLocked(msg)
	case events.TypeTyping:
		var payload events.Typing
		if events.Decode(env, &payload) != nil {
			return
		}
		if payload.IsTyping {
			s.typingUsers[payload.ChatID] = payload.UserID
		} else {
			delete(s.typingUsers, payload.ChatID)
		}
	case events.TypeSocketError:
		var payload events.SocketError
		if events.Decode(env, &payload) != nil {
			return
		}
		s.applySocketErrorLocked(payload)
	default:
		logger.DebugF("Unknown event type %q", env.Type)
		return
	}
	s.notifyLocked()
}

// applyMessageLocked merges an authoritative message: optimistic entries for
// the chat are resolved, the message is appended exactly once, the chat is
// marked unread when not being viewed, and any typing indicator for the chat
// is cleared (a message implies typing ended).
func (s *Store) applyMessageLocked(msg models.Message) {
	s.messages[msg.ChatID] = reconcile(s.messages[msg.ChatID], msg)
	s.clearPendingLocked(msg.ChatID)

	if msg.ChatID != s.currentChatID && msg.Sender.ID != s.self.ID {
		s.unreadChats[msg.ChatID] = true
	}
	delete(s.typingUsers, msg.ChatID)
}

// applySocketErrorLocked rolls back the oldest outstanding optimistic send.
// The wire error carries no message reference, so FIFO order stands in for
// the per-send error handler of the original design.
func (s *Store) applySocketErrorLocked(payload events.SocketError) {
	logger.WarnF("Socket error: %s", payload.Message)
	s.lastError = payload.Message

	if len(s.pending) == 0 {
		return
	}
	failed := s.pending[0]
	s.pending = s.pending[1:]

	list := s.messages[failed.chatID]
	kept := make([]models.Message, 0, len(list))
	for _, m := range list {
		if m.ID != failed.tempID {
			kept = append(kept, m)
		}
	}
	s.messages[failed.chatID] = kept
}

func (s *Store) clearPendingLocked(chatID string) {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.chatID != chatID {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

// State returns the connection state.
func (s *Store) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnlineUsers returns the set of users currently online.
func (s *Store) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	userIDs := make([]string, 0, len(s.onlineUsers))
	for userID := range s.onlineUsers {
		userIDs = append(userIDs, userID)
	}
	return userIDs
}

// IsOnline reports whether userID is in the presence set.
func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onlineUsers[userID]
}

// TypingUser returns the user currently typing in chatID, if any.
func (s *Store) TypingUser(chatID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.typingUsers[chatID]
	return userID, ok
}

// UnreadChats returns the chats with unseen inbound messages.
func (s *Store) UnreadChats() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	chatIDs := make([]string, 0, len(s.unreadChats))
	for chatID := range s.unreadChats {
		chatIDs = append(chatIDs, chatID)
	}
	return chatIDs
}

// IsUnread reports whether chatID has unseen inbound messages.
func (s *Store) IsUnread(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadChats[chatID]
}

// Messages returns a copy of the UI-visible message list for chatID.
func (s *Store) Messages(chatID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]models.Message, len(s.messages[chatID]))
	copy(list, s.messages[chatID])
	return list
}

// LastError returns the most recent socket-error message.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// SetMessages seeds the message list for a chat from the non-realtime fetch
// path. Optimistic entries currently outstanding are preserved.
func (s *Store) SetMessages(chatID string, list []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]models.Message, 0, len(list))
	merged = append(merged, list...)
	for _, m := range s.messages[chatID] {
		if isTempID(m.ID) {
			merged = append(merged, m)
		}
	}
	s.messages[chatID] = merged
	s.notifyLocked()
}
