package hives

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"unihive/apperr"
	"unihive/models"
)

// Repository stores listings. Update and Delete report a missing id as
// *apperr.NotFoundError.
type Repository interface {
	List(ctx context.Context, hive models.HiveCategory) ([]models.Listing, error)
	Get(ctx context.Context, id string) (models.Listing, error)
	Insert(ctx context.Context, l models.Listing) error
	Update(ctx context.Context, l models.Listing) error
	Delete(ctx context.Context, id string) error
	// CloseExpired marks open listings whose deadline is before today as completed.
	CloseExpired(ctx context.Context, today time.Time) (int64, error)
}

type MongoRepository struct {
	Coll *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection) *MongoRepository {
	return &MongoRepository{Coll: coll}
}

func notFound(id string) error {
	return &apperr.NotFoundError{Kind: "listing", ID: id}
}

// List returns a hive's listings, newest first.
func (m *MongoRepository) List(ctx context.Context, hive models.HiveCategory) ([]models.Listing, error) {
	opts := options.Find().SetSort(bson.D{{Key: "postedAt", Value: -1}})
	cur, err := m.Coll.Find(ctx, bson.M{"hive": hive}, opts)
	if err != nil {
		return nil, fmt.Errorf("find listings in %s: %w", hive, err)
	}
	defer cur.Close(ctx)

	listings := []models.Listing{}
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("decode listings in %s: %w", hive, err)
	}
	return listings, nil
}

func (m *MongoRepository) Get(ctx context.Context, id string) (models.Listing, error) {
	var l models.Listing
	err := m.Coll.FindOne(ctx, bson.M{"id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return l, notFound(id)
	}
	if err != nil {
		return l, fmt.Errorf("get listing %s: %w", id, err)
	}
	return l, nil
}

func (m *MongoRepository) Insert(ctx context.Context, l models.Listing) error {
	if _, err := m.Coll.InsertOne(ctx, l); err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (m *MongoRepository) Update(ctx context.Context, l models.Listing) error {
	res, err := m.Coll.ReplaceOne(ctx, bson.M{"id": l.ID}, l)
	if err != nil {
		return fmt.Errorf("update listing %s: %w", l.ID, err)
	}
	if res.MatchedCount == 0 {
		return notFound(l.ID)
	}
	return nil
}

func (m *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := m.Coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("delete listing %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return notFound(id)
	}
	return nil
}

// Deadlines are stored as YYYY-MM-DD, so a lexical comparison orders them;
// anything else stored in the field is left alone.
func (m *MongoRepository) CloseExpired(ctx context.Context, today time.Time) (int64, error) {
	filter := bson.M{
		"status": models.StatusOpen,
		"deadline": bson.M{
			"$regex": `^\d{4}-\d{2}-\d{2}$`,
			"$lt":    today.UTC().Format(models.DateLayout),
		},
	}
	update := bson.M{"$set": bson.M{"status": models.StatusCompleted, "updatedAt": time.Now().UTC()}}
	res, err := m.Coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("close expired listings: %w", err)
	}
	return res.ModifiedCount, nil
}
