package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"shopup-backend/internal/models"
)

func TestMongoProductRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".products", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "name", Value: "Shea butter"},
			{Key: "price", Value: 35.0},
			{Key: "is_active", Value: true},
		}))

		product, err := repo.GetByID(context.Background(), "p1")
		require.NoError(mt, err)
		assert.Equal(mt, "Shea butter", product.Name)
		assert.Equal(mt, 35.0, product.Price)
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".products", mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list active", func(mt *mtest.T) {
		repo := NewMongoProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".products", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "p1"}, {Key: "name", Value: "Kente"}, {Key: "is_active", Value: true}},
			bson.D{{Key: "_id", Value: "p2"}, {Key: "name", Value: "Adinkra print"}, {Key: "is_active", Value: true}},
		))

		products, err := repo.ListActive(context.Background(), models.ProductFilter{Category: "textiles"})
		require.NoError(mt, err)
		require.Len(mt, products, 2)
		assert.Equal(mt, "p2", products[1].ID)
	})

	mt.Run("get by ids empty input", func(mt *mtest.T) {
		products, err := NewMongoProductRepository(mt.DB).GetByIDs(context.Background(), nil)
		require.NoError(mt, err)
		assert.Nil(mt, products)
	})
}
