package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store"
)

func TestCreateUserUpsertsOnExternalID(t *testing.T) {
	s := New()
	ctx := context.Background()

	user := &models.User{ExternalID: "ext-1", Name: "Alice"}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}

	again := &models.User{ExternalID: "ext-1", Name: "Alice Updated"}
	if err := s.CreateUser(ctx, again); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if again.ID != user.ID {
		t.Errorf("expected same id on re-sync, got %s and %s", user.ID, again.ID)
	}

	found, err := s.FindUserByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("FindUserByExternalID failed: %v", err)
	}
	if found.Name != "Alice Updated" {
		t.Errorf("expected updated name, got %s", found.Name)
	}
}

func TestFindUserNotFound(t *testing.T) {
	s := New()

	_, err := s.FindUserByID(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateChatFindOrCreate(t *testing.T) {
	s := New()
	ctx := context.Background()

	chat, err := s.CreateChat(ctx, "a", "b")
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}

	// Either participant ordering resolves to the same chat.
	same, err := s.CreateChat(ctx, "b", "a")
	if err != nil {
		t.Fatalf("CreateChat failed: %v", err)
	}
	if same.ID != chat.ID {
		t.Errorf("expected same chat for reversed pair, got %s and %s", chat.ID, same.ID)
	}
}

func TestFindChatForParticipantEnforcesMembership(t *testing.T) {
	s := New()
	ctx := context.Background()

	chat, _ := s.CreateChat(ctx, "a", "b")

	if _, err := s.FindChatForParticipant(ctx, chat.ID, "a"); err != nil {
		t.Errorf("participant lookup failed: %v", err)
	}
	if _, err := s.FindChatForParticipant(ctx, chat.ID, "outsider"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for non-participant, got %v", err)
	}
}

func TestMessagesAndLastMessagePointer(t *testing.T) {
	s := New()
	ctx := context.Background()

	chat, _ := s.CreateChat(ctx, "a", "b")
	sender := models.MessageSender{ID: "a", Name: "Alice"}

	msg, err := s.CreateMessage(ctx, chat.ID, sender, "hello")
	if err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	if err := s.UpdateChatLastMessage(ctx, chat.ID, msg.ID, msg.CreatedAt); err != nil {
		t.Fatalf("UpdateChatLastMessage failed: %v", err)
	}

	messages, err := s.ListChatMessages(ctx, chat.ID)
	if err != nil {
		t.Fatalf("ListChatMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Text != "hello" {
		t.Errorf("unexpected messages %v", messages)
	}

	updated, _ := s.FindChatForParticipant(ctx, chat.ID, "a")
	if updated.LastMessageID != msg.ID {
		t.Errorf("expected last message pointer %s, got %s", msg.ID, updated.LastMessageID)
	}
}

func TestListUserChatsSortedByActivity(t *testing.T) {
	s := New()
	ctx := context.Background()

	older, _ := s.CreateChat(ctx, "a", "b")
	newer, _ := s.CreateChat(ctx, "a", "c")

	now := time.Now()
	s.UpdateChatLastMessage(ctx, older.ID, "m1", now.Add(-time.Hour))
	s.UpdateChatLastMessage(ctx, newer.ID, "m2", now)

	chats, err := s.ListUserChats(ctx, "a")
	if err != nil {
		t.Fatalf("ListUserChats failed: %v", err)
	}
	if len(chats) != 2 || chats[0].ID != newer.ID {
		t.Errorf("expected most recently active first, got %v", chats)
	}

	chats, _ = s.ListUserChats(ctx, "b")
	if len(chats) != 1 {
		t.Errorf("expected 1 chat for b, got %d", len(chats))
	}
}
