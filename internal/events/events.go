// Package events defines the websocket event vocabulary shared by the server
// hub and the client synchronization store. Every frame on the wire is a JSON
// Envelope; the payload shape depends on the event type.
package events

import (
	"encoding/json"

	"github.com/whisper-im/whisper/internal/models"
)

// Client -> server event types.
const (
	TypeJoinChat    = "join-chat"
	TypeLeaveChat   = "leave-chat"
	TypeSendMessage = "send-message"
	TypeTyping      = "typing"
)

// Server -> client event types.
const (
	TypeOnlineUsers = "online-users"
	TypeUserOnline  = "user-online"
	TypeUserOffline = "user-offline"
	TypeNewMessage  = "new-message"
	TypeSocketError = "socket-error"
)

type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type OnlineUsers struct {
	UserIDs []string `json:"userIds"`
}

type UserOnline struct {
	UserID string `json:"userId"`
}

type UserOffline struct {
	UserID string `json:"userId"`
}

type JoinChat struct {
	ChatID string `json:"chatId"`
}

type LeaveChat struct {
	ChatID string `json:"chatId"`
}

type SendMessage struct {
	ChatID string `json:"chatId"`
	Text   string `json:"text"`
}

// Typing is used in both directions. The server fills UserID when relaying.
type Typing struct {
	UserID   string `json:"userId,omitempty"`
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

type NewMessage = models.Message

type SocketError struct {
	Message string `json:"message"`
}

// Marshal encodes an envelope for the given type and payload.
func Marshal(eventType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Decode unmarshals an envelope payload into v.
func Decode(env Envelope, v any) error {
	return json.Unmarshal(env.Payload, v)
}
