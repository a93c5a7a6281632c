package chats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"unihive/models"
	"unihive/utils"
)

var ErrChatNotFound = errors.New("chat not found")

type Repository interface {
	// FindOrCreate returns the chat between users about listingID, creating it on first use.
	FindOrCreate(ctx context.Context, users []string, listingID string) (models.Chat, error)
	Get(ctx context.Context, chatID string) (models.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]models.Chat, error)
	AddMessage(ctx context.Context, msg models.Message) error
	Messages(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

type MongoRepository struct {
	Chats       *mongo.Collection
	MessageColl *mongo.Collection
}

func NewMongoRepository(chatsColl, messagesColl *mongo.Collection) *MongoRepository {
	return &MongoRepository{Chats: chatsColl, MessageColl: messagesColl}
}

func sortedUsers(users []string) []string {
	out := append([]string(nil), users...)
	sort.Strings(out)
	return out
}

func (m *MongoRepository) FindOrCreate(ctx context.Context, users []string, listingID string) (models.Chat, error) {
	users = sortedUsers(users)
	filter := bson.M{"users": users, "listingid": listingID}

	var chat models.Chat
	err := m.Chats.FindOne(ctx, filter).Decode(&chat)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return chat, fmt.Errorf("find chat: %w", err)
	}

	now := time.Now().UTC()
	chat = models.Chat{
		ChatID:    utils.GetUUID(),
		Users:     users,
		ListingID: listingID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := m.Chats.InsertOne(ctx, chat); err != nil {
		return models.Chat{}, fmt.Errorf("insert chat: %w", err)
	}
	return chat, nil
}

func (m *MongoRepository) Get(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := m.Chats.FindOne(ctx, bson.M{"chatid": chatID}).Decode(&chat)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return chat, ErrChatNotFound
	}
	if err != nil {
		return chat, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

func (m *MongoRepository) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := m.Chats.Find(ctx, bson.M{"users": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	chats := []models.Chat{}
	if err := cur.All(ctx, &chats); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}
	return chats, nil
}

func (m *MongoRepository) AddMessage(ctx context.Context, msg models.Message) error {
	if _, err := m.MessageColl.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	_, err := m.Chats.UpdateOne(ctx, bson.M{"chatid": msg.ChatID}, bson.M{"$set": bson.M{
		"lastMessage": models.MessagePreview{Text: msg.Text, SenderID: msg.UserID, Timestamp: msg.CreatedAt},
		"updatedAt":   msg.CreatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update chat preview: %w", err)
	}
	return nil
}

// Messages returns the latest limit messages, oldest first.
func (m *MongoRepository) Messages(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := m.MessageColl.Find(ctx, bson.M{"chatid": chatID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	msgs := []models.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
