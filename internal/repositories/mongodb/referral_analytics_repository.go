package mongodb

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type referralAnalyticsRepository struct {
	collection *mongo.Collection
}

func NewReferralAnalyticsRepository(db *mongo.Database) interfaces.ReferralAnalyticsRepository {
	return &referralAnalyticsRepository{
		collection: db.Collection(database.CollectionReferralEvents),
	}
}

func (r *referralAnalyticsRepository) Create(ctx context.Context, event *models.ReferralAnalyticsEvent) error {
	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return utils.StoreError("create referral event", err)
	}
	return nil
}

func (r *referralAnalyticsRepository) CountByType(ctx context.Context, referrerID string) (map[models.ReferralEventType]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"referrer_id": referrerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$event_type",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, utils.StoreError("aggregate referral events", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		EventType models.ReferralEventType `bson:"_id"`
		Count     int64                    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, utils.StoreError("decode referral events", err)
	}

	counts := make(map[models.ReferralEventType]int64, len(rows))
	for _, row := range rows {
		counts[row.EventType] = row.Count
	}
	return counts, nil
}
