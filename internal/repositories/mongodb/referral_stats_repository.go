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
	"go.mongodb.org/mongo-driver/mongo/options"
)

type referralStatsRepository struct {
	collection *mongo.Collection
}

func NewReferralStatsRepository(db *mongo.Database) interfaces.ReferralStatsRepository {
	return &referralStatsRepository{
		collection: db.Collection(database.CollectionReferralStats),
	}
}

func (r *referralStatsRepository) Create(ctx context.Context, stats *models.ReferralStats) error {
	now := time.Now()
	stats.ID = primitive.NewObjectID()
	stats.ReferralCode = strings.ToUpper(stats.ReferralCode)
	stats.CreatedAt = now
	stats.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, stats)
	switch {
	case err == nil:
		return nil
	case database.IsDuplicateKeyError(err, database.IndexStatsReferralCode):
		return utils.ErrCodeTaken
	case database.IsDuplicateKeyError(err, database.IndexStatsUserID):
		return utils.ErrStatsExists
	default:
		return utils.StoreError("create referral stats", err)
	}
}

func (r *referralStatsRepository) GetByUserID(ctx context.Context, userID string) (*models.ReferralStats, error) {
	return r.findOne(ctx, bson.M{"user_id": userID}, "get referral stats")
}

func (r *referralStatsRepository) GetByCode(ctx context.Context, code string) (*models.ReferralStats, error) {
	return r.findOne(ctx, bson.M{"referral_code": strings.ToUpper(code)}, "get referral stats by code")
}

func (r *referralStatsRepository) findOne(ctx context.Context, filter bson.M, op string) (*models.ReferralStats, error) {
	var stats models.ReferralStats
	err := r.collection.FindOne(ctx, filter).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.ErrStatsNotFound
		}
		return nil, utils.StoreError(op, err)
	}
	return &stats, nil
}

func (r *referralStatsRepository) CustomizeCode(ctx context.Context, userID, code string, at time.Time) (*models.ReferralStats, error) {
	filter := bson.M{"user_id": userID, "code_customized": false}
	update := bson.M{"$set": bson.M{
		"referral_code":      strings.ToUpper(code),
		"code_customized":    true,
		"code_customized_at": at,
		"updated_at":         at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stats models.ReferralStats
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stats)
	switch {
	case err == nil:
		return &stats, nil
	case database.IsDuplicateKeyError(err, database.IndexStatsReferralCode):
		return nil, utils.ErrCodeTaken
	case errors.Is(err, mongo.ErrNoDocuments):
		// Either the record is missing or the rename was already spent.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
		if countErr != nil {
			return nil, utils.StoreError("customize referral code", countErr)
		}
		if count == 0 {
			return nil, utils.ErrStatsNotFound
		}
		return nil, utils.ErrAlreadyCustomized
	default:
		return nil, utils.StoreError("customize referral code", err)
	}
}

func (r *referralStatsRepository) ListTop(ctx context.Context, limit int) ([]*models.ReferralStats, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "successful_referrals", Value: -1},
			{Key: "total_earnings", Value: -1},
			{Key: "_id", Value: 1},
		}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, utils.StoreError("list top referrers", err)
	}
	defer cursor.Close(ctx)

	var stats []*models.ReferralStats
	if err := cursor.All(ctx, &stats); err != nil {
		return nil, utils.StoreError("decode top referrers", err)
	}
	return stats, nil
}
