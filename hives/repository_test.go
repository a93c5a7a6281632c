package hives

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"unihive/apperr"
	"unihive/models"
)

func toDoc(t *testing.T, l models.Listing) bson.D {
	t.Helper()
	raw, err := bson.Marshal(l)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list decodes listings", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		a := models.Listing{ID: "a", Hive: models.HiveAcademia, Title: "Calculus tutor", Price: models.TextPrice("20-30")}
		b := models.Listing{ID: "b", Hive: models.HiveAcademia, Title: "Essay help", Price: models.NumberPrice(15)}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, toDoc(t, a), toDoc(t, b)))

		got, err := NewMongoRepository(mt.Coll).List(ctx, models.HiveAcademia)
		require.NoError(mt, err)
		require.Len(mt, got, 2)
		assert.Equal(mt, "20-30", got[0].Price.String())
		assert.Equal(mt, "15", got[1].Price.String())
	})

	mt.Run("get missing is not found", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewMongoRepository(mt.Coll).Get(ctx, "nope")
		assert.True(mt, apperr.IsNotFound(err))
	})

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		err := NewMongoRepository(mt.Coll).Insert(ctx, models.Listing{ID: "x", Hive: models.HiveBuzz})
		assert.NoError(mt, err)
	})

	mt.Run("update missing is not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := NewMongoRepository(mt.Coll).Update(ctx, models.Listing{ID: "ghost"})
		assert.True(mt, apperr.IsNotFound(err))
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		assert.NoError(mt, NewMongoRepository(mt.Coll).Delete(ctx, "x"))
	})

	mt.Run("close expired counts modified", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}, bson.E{Key: "nModified", Value: 2}))
		n, err := NewMongoRepository(mt.Coll).CloseExpired(ctx, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})
}
