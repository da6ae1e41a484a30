package mongodb

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type couponRepository struct {
	collection *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) interfaces.CouponRepository {
	return &couponRepository{
		collection: db.Collection(database.CollectionCoupons),
	}
}

func (r *couponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	now := time.Now()
	coupon.ID = primitive.NewObjectID()
	coupon.Code = strings.ToUpper(coupon.Code)
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, coupon)
	if err != nil {
		if database.IsDuplicateKeyError(err, database.IndexCouponCode) {
			return utils.ErrCouponExists
		}
		return utils.StoreError("create coupon", err)
	}
	return nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.collection.FindOne(ctx, bson.M{"code": strings.ToUpper(code)}).Decode(&coupon)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.ErrCouponNotFound
		}
		return nil, utils.StoreError("get coupon", err)
	}
	return &coupon, nil
}

func (r *couponRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Coupon, int64, error) {
	params = utils.NormalizePagination(params)
	filter := bson.M{}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.StoreError("count coupons", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, utils.StoreError("find coupons", err)
	}
	defer cursor.Close(ctx)

	var coupons []*models.Coupon
	if err := cursor.All(ctx, &coupons); err != nil {
		return nil, 0, utils.StoreError("decode coupons", err)
	}
	return coupons, total, nil
}

func (r *couponRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID, usageLimit int) (bool, error) {
	filter := bson.M{"_id": id}
	if usageLimit > 0 {
		filter["used_count"] = bson.M{"$lt": usageLimit}
	}

	res, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": time.Now()},
	})
	if err != nil {
		return false, utils.StoreError("increment coupon usage", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	if usageLimit <= 0 {
		return false, utils.ErrCouponNotFound
	}
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, utils.StoreError("check coupon", err)
	}
	if n == 0 {
		return false, utils.ErrCouponNotFound
	}
	return false, nil
}
