package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"unihive/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// Users is the account storage the handlers need.
type Users interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByUsername(ctx context.Context, username string) (models.User, error)
	Insert(ctx context.Context, u models.User) error
	MarkVerified(ctx context.Context, email string) error
	SetPassword(ctx context.Context, email, hash string) error
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}

type MongoUsers struct {
	Coll *mongo.Collection
}

func NewMongoUsers(coll *mongo.Collection) *MongoUsers {
	return &MongoUsers{Coll: coll}
}

func (m *MongoUsers) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	err := m.Coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, ErrUserNotFound
	}
	if err != nil {
		return u, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (m *MongoUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *MongoUsers) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

func (m *MongoUsers) Insert(ctx context.Context, u models.User) error {
	_, err := m.Coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MongoUsers) update(ctx context.Context, filter, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := m.Coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *MongoUsers) MarkVerified(ctx context.Context, email string) error {
	return m.update(ctx, bson.M{"email": email}, bson.M{"email_verified": true})
}

func (m *MongoUsers) SetPassword(ctx context.Context, email, hash string) error {
	return m.update(ctx, bson.M{"email": email}, bson.M{"password": hash})
}

func (m *MongoUsers) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return m.update(ctx, bson.M{"userid": userID}, bson.M{"last_login": at})
}
