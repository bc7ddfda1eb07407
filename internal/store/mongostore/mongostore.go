// Package mongostore implements the store interface on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/whisper-im/whisper/internal/logger"
	"github.com/whisper-im/whisper/internal/models"
	"github.com/whisper-im/whisper/internal/store"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"

	operationTimeout = 10 * time.Second
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB, verifies the connection and ensures indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	logger.DebugF("Connecting to database %s", database)

	clientOptions := options.Client().ApplyURI(uri).SetAppName("whisper")
	clientOptions.SetConnectTimeout(15 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &MongoStore{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "external_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_external_id_unique"),
	})
	if err != nil {
		return fmt.Errorf("creating user index: %w", err)
	}

	_, err = s.db.Collection(chatsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating chat index: %w", err)
	}

	_, err = s.db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("creating message index: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	logger.Info("Closing database connection")
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	// Upsert on external id so repeated auth syncs refresh the profile.
	filter := bson.D{{Key: "external_id", Value: user.ExternalID}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "name", Value: user.Name},
			{Key: "email", Value: user.Email},
			{Key: "avatar", Value: user.Avatar},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "_id", Value: uuid.NewString()}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var updated models.User
	if err := s.db.Collection(usersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}
	*user = updated
	return nil
}

func (s *MongoStore) FindUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "external_id", Value: externalID}})
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return &user, nil
}

func (s *MongoStore) ListUsers(ctx context.Context, excludeID string) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}}}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decoding users: %w", err)
	}
	return users, nil
}

func (s *MongoStore) CreateChat(ctx context.Context, participantA, participantB string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	// Find-or-create on the participant pair so both orderings resolve to the
	// same chat document.
	filter := bson.D{{Key: "participants", Value: bson.D{{Key: "$all", Value: bson.A{participantA, participantB}}}}}
	update := bson.D{
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "_id", Value: uuid.NewString()},
			{Key: "participants", Value: bson.A{participantA, participantB}},
			{Key: "created_at", Value: time.Now()},
		}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var chat models.Chat
	if err := s.db.Collection(chatsCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&chat); err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	return &chat, nil
}

func (s *MongoStore) FindChatForParticipant(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	filter := bson.D{
		{Key: "_id", Value: chatID},
		{Key: "participants", Value: userID},
	}
	var chat models.Chat
	err := s.db.Collection(chatsCollection).FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("finding chat: %w", err)
	}
	return &chat, nil
}

func (s *MongoStore) ListUserChats(ctx context.Context, userID string) ([]models.Chat, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "participants", Value: userID}}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := s.db.Collection(chatsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}

	var chats []models.Chat
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("decoding chats: %w", err)
	}
	return chats, nil
}

func (s *MongoStore) UpdateChatLastMessage(ctx context.Context, chatID, messageID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "_id", Value: chatID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "last_message_id", Value: messageID},
		{Key: "last_message_at", Value: at},
	}}}
	result, err := s.db.Collection(chatsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("updating chat: %w", err)
	}
	if result.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *MongoStore) CreateMessage(ctx context.Context, chatID string, sender models.MessageSender, text string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	msg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if _, err := s.db.Collection(messagesCollection).InsertOne(ctx, msg); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return &msg, nil
}

func (s *MongoStore) ListChatMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	filter := bson.D{{Key: "chat_id", Value: chatID}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(messagesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decoding messages: %w", err)
	}
	return messages, nil
}
