package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	Client             *mongo.Client
	ListingsCollection *mongo.Collection
	UserCollection     *mongo.Collection
	ChatsCollection    *mongo.Collection
	MessagesCollection *mongo.Collection
)

// Connect dials MongoDB, binds the collections and makes sure the indexes exist.
func Connect(ctx context.Context, uri, database string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}

	Client = client
	dbase := client.Database(database)
	ListingsCollection = dbase.Collection("listings")
	UserCollection = dbase.Collection("users")
	ChatsCollection = dbase.Collection("chats")
	MessagesCollection = dbase.Collection("messages")

	if err := CreateIndexes(ctx); err != nil {
		return err
	}
	log.Printf("[db] connected to %s/%s", uri, database)
	return nil
}

func CreateIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		ListingsCollection: {
			{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "hive", Value: 1}, {Key: "postedAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "deadline", Value: 1}}},
		},
		UserCollection: {
			{Keys: bson.D{{Key: "userid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ChatsCollection: {
			{Keys: bson.D{{Key: "chatid", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "users", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		MessagesCollection: {
			{Keys: bson.D{{Key: "chatid", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		log.Printf("[db] disconnect error: %v", err)
	}
}
