// Package memstore is an in-memory store implementation used by tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store"
)

type MemStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	chats    map[string]*models.Chat
	messages map[string][]models.Message // chatID -> messages in insert order
}

func New() *MemStore {
	return &MemStore{
		users:    make(map[string]*models.User),
		chats:    make(map[string]*models.Chat),
		messages: make(map[string][]models.Message),
	}
}

func (s *MemStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.ExternalID == user.ExternalID {
			existing.Name = user.Name
			existing.Email = user.Email
			existing.Avatar = user.Avatar
			*user = *existing
			return nil
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *MemStore) FindUserByExternalID(_ context.Context, externalID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.ExternalID == externalID {
			copied := *user
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *MemStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemStore) ListUsers(_ context.Context, excludeID string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		if user.ID != excludeID {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (s *MemStore) CreateChat(_ context.Context, participantA, participantB string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chat := range s.chats {
		if chat.HasParticipant(participantA) && chat.HasParticipant(participantB) {
			copied := *chat
			return &copied, nil
		}
	}
	chat := &models.Chat{
		ID:           uuid.NewString(),
		Participants: []string{participantA, participantB},
		CreatedAt:    time.Now(),
	}
	s.chats[chat.ID] = chat
	copied := *chat
	return &copied, nil
}

func (s *MemStore) FindChatForParticipant(_ context.Context, chatID, userID string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok || !chat.HasParticipant(userID) {
		return nil, store.ErrNotFound
	}
	copied := *chat
	return &copied, nil
}

func (s *MemStore) ListUserChats(_ context.Context, userID string) ([]models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var chats []models.Chat
	for _, chat := range s.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, *chat)
		}
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].LastMessageAt.After(chats[j].LastMessageAt) })
	return chats, nil
}

func (s *MemStore) UpdateChatLastMessage(_ context.Context, chatID, messageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return store.ErrNotFound
	}
	chat.LastMessageID = messageID
	chat.LastMessageAt = at
	return nil
}

func (s *MemStore) CreateMessage(_ context.Context, chatID string, sender models.MessageSender, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.messages[chatID] = append(s.messages[chatID], msg)
	return &msg, nil
}

func (s *MemStore) ListChatMessages(_ context.Context, chatID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]models.Message, len(s.messages[chatID]))
	copy(messages, s.messages[chatID])
	return messages, nil
}
