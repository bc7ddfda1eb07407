package models

import "time"

type User struct {
	ID         string `bson:"_id,omitempty" json:"id"`
	ExternalID string `bson:"external_id" json:"externalId"`
	Name       string `bson:"name" json:"name"`
	Email      string `bson:"email" json:"email"`
	Avatar     string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

// Chat is a two-party conversation. Participants always holds exactly two
// user IDs; membership checks filter on this array.
type Chat struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	Participants  []string  `bson:"participants" json:"participants"`
	LastMessageID string    `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastMessageAt time.Time `bson:"last_message_at,omitempty" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// MessageSender is the sender identity embedded in an outbound message so
// receiving clients do not need a second lookup to render it.
type MessageSender struct {
	ID     string `bson:"id" json:"id"`
	Name   string `bson:"name" json:"name"`
	Avatar string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}

type Message struct {
	ID        string        `bson:"_id,omitempty" json:"id"`
	ChatID    string        `bson:"chat_id" json:"chatId"`
	Sender    MessageSender `bson:"sender" json:"sender"`
	Text      string        `bson:"text" json:"text"`
	CreatedAt time.Time     `bson:"created_at" json:"createdAt"`
}

// OtherParticipant returns the participant that is not userID, or "" if
// userID is not in the chat.
func (c *Chat) OtherParticipant(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
