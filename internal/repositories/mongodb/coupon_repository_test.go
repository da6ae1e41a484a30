package mongodb

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestCouponIncrementUsage(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()
	id := primitive.NewObjectID()

	mt.Run("counted under the limit", func(mt *mtest.T) {
		repo := NewCouponRepository(mt.DB)
		mt.AddMockResponses(updatedResponse(1))

		counted, err := repo.IncrementUsage(ctx, id, 5)
		require.NoError(mt, err)
		assert.True(mt, counted)

		limit, ok := mt.GetStartedEvent().Command.Lookup("updates", "0", "q", "used_count", "$lt").AsInt64OK()
		require.True(mt, ok)
		assert.Equal(mt, int64(5), limit)
	})

	mt.Run("exhausted coupon is not counted", func(mt *mtest.T) {
		repo := NewCouponRepository(mt.DB)
		mt.AddMockResponses(updatedResponse(0), countResponse(mt, database.CollectionCoupons, 1))

		counted, err := repo.IncrementUsage(ctx, id, 5)
		require.NoError(mt, err)
		assert.False(mt, counted)
		assert.Equal(mt, []string{"update", "aggregate"}, commandNames(mt))
	})

	mt.Run("unlimited coupon has no usage filter", func(mt *mtest.T) {
		repo := NewCouponRepository(mt.DB)
		mt.AddMockResponses(updatedResponse(1))

		counted, err := repo.IncrementUsage(ctx, id, 0)
		require.NoError(mt, err)
		assert.True(mt, counted)

		_, err = mt.GetStartedEvent().Command.LookupErr("updates", "0", "q", "used_count")
		assert.Error(mt, err)
	})

	mt.Run("missing coupon", func(mt *mtest.T) {
		repo := NewCouponRepository(mt.DB)
		mt.AddMockResponses(updatedResponse(0), countResponse(mt, database.CollectionCoupons, 0))

		_, err := repo.IncrementUsage(ctx, id, 5)
		assert.ErrorIs(mt, err, utils.ErrCouponNotFound)
	})
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	mt := newMockT(t)

	mt.Run("duplicate", func(mt *mtest.T) {
		repo := NewCouponRepository(mt.DB)
		mt.AddMockResponses(duplicateWriteResponse(database.CollectionCoupons, database.IndexCouponCode))

		err := repo.Create(context.Background(), &models.Coupon{Code: "drop20", Type: models.CouponTypePercentage, Value: 20})
		assert.ErrorIs(mt, err, utils.ErrCouponExists)
	})
}
