// Package store defines the persistence interface consumed by the realtime
// hub and the HTTP handlers. Implementations live in subpackages: mongostore
// for production, memstore for tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/whisper-im/whisper/internal/models"
)

// ErrNotFound is returned when a lookup matches no document. The relay maps
// it to a scoped socket-error; handlers map it to 404.
var ErrNotFound = errors.New("not found")

type Store interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, excludeID string) ([]models.User, error)

	// Chat operations
	CreateChat(ctx context.Context, participantA, participantB string) (*models.Chat, error)
	FindChatForParticipant(ctx context.Context, chatID, userID string) (*models.Chat, error)
	ListUserChats(ctx context.Context, userID string) ([]models.Chat, error)
	UpdateChatLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error

	// Message operations
	CreateMessage(ctx context.Context, chatID string, sender models.MessageSender, text string) (*models.Message, error)
	ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error)
}
