package mongodb

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"
	"storefront/pkg/database"
	"storefront/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type referralRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
	stats      *mongo.Collection
	logger     *logger.Logger
}

func NewReferralRepository(db *database.MongoDB, log *logger.Logger) interfaces.ReferralRepository {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &referralRepository{
		db:         db,
		collection: db.Collection(database.CollectionReferrals),
		stats:      db.Collection(database.CollectionReferralStats),
		logger:     log,
	}
}

func (r *referralRepository) CreateWithIncrement(ctx context.Context, referral *models.Referral) error {
	now := time.Now()
	referral.ID = primitive.NewObjectID()
	referral.Status = models.ReferralStatusPending
	referral.CreatedAt = now
	referral.UpdatedAt = now

	if r.db.TransactionsEnabled() {
		err := r.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if err := r.incrementTotal(sessCtx, referral.ReferrerID, 1); err != nil {
				return err
			}
			_, err := r.collection.InsertOne(sessCtx, referral)
			return err
		})
		return r.mapCreateError(err)
	}

	// Standalone deployments: increment first, undo it if the insert fails.
	comp := utils.NewCompensation()
	if err := r.incrementTotal(ctx, referral.ReferrerID, 1); err != nil {
		return r.mapCreateError(err)
	}
	comp.Add("increment total_referrals", func(ctx context.Context) error {
		return r.incrementTotal(ctx, referral.ReferrerID, -1)
	})

	if _, err := r.collection.InsertOne(ctx, referral); err != nil {
		if rbErr := comp.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			r.logger.WithError(rbErr).
				WithUserID(referral.ReferrerID).
				Error("Failed to roll back total_referrals increment")
		}
		return r.mapCreateError(err)
	}
	comp.Commit()

	return nil
}

func (r *referralRepository) incrementTotal(ctx context.Context, userID string, delta int64) error {
	res, err := r.stats.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{"total_referrals": delta},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrStatsNotFound
	}
	return nil
}

func (r *referralRepository) mapCreateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, utils.ErrStatsNotFound):
		return utils.ErrUnknownCode
	case database.IsDuplicateKeyError(err, database.IndexCheckoutSession):
		return utils.ErrReferralExists
	default:
		return utils.StoreError("create referral", err)
	}
}

func (r *referralRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Referral, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *referralRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Referral, error) {
	return r.findOne(ctx, bson.M{"checkout_session_id": sessionID})
}

func (r *referralRepository) findOne(ctx context.Context, filter bson.M) (*models.Referral, error) {
	var referral models.Referral
	err := r.collection.FindOne(ctx, filter).Decode(&referral)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.ErrReferralNotFound
		}
		return nil, utils.StoreError("get referral", err)
	}
	return &referral, nil
}

// Status transitions

func (r *referralRepository) Complete(ctx context.Context, id primitive.ObjectID, c models.ReferralCompletion) (*models.Referral, error) {
	update := bson.M{"$set": bson.M{
		"status":            models.ReferralStatusCompleted,
		"order_id":          c.OrderID,
		"order_total":       c.OrderTotal,
		"commission_rate":   c.CommissionRate,
		"commission_earned": c.CommissionEarned,
		"completed_at":      c.CompletedAt,
		"updated_at":        c.CompletedAt,
	}}
	return r.transition(ctx, id, models.ReferralStatusPending, update, utils.ErrAlreadyCompleted)
}

func (r *referralRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, payoutReference string, at time.Time) (*models.Referral, error) {
	update := bson.M{"$set": bson.M{
		"status":           models.ReferralStatusPaid,
		"payout_reference": payoutReference,
		"paid_at":          at,
		"updated_at":       at,
	}}
	return r.transition(ctx, id, models.ReferralStatusCompleted, update, utils.ErrInvalidTransition)
}

// transition applies update only while the referral is still in from. A
// miss on an existing referral is reported as conflict.
func (r *referralRepository) transition(ctx context.Context, id primitive.ObjectID, from models.ReferralStatus, update bson.M, conflict error) (*models.Referral, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var referral models.Referral
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&referral)
	if err == nil {
		return &referral, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.StoreError("update referral status", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, utils.StoreError("update referral status", err)
	}
	if count == 0 {
		return nil, utils.ErrReferralNotFound
	}
	return nil, conflict
}

// Queries

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID string, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	return r.findWithFilter(ctx, bson.M{"referrer_id": referrerID}, params)
}

func (r *referralRepository) ListByStatus(ctx context.Context, status models.ReferralStatus, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	return r.findWithFilter(ctx, bson.M{"status": status}, params)
}

func (r *referralRepository) findWithFilter(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	params = utils.NormalizePagination(params)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, utils.StoreError("count referrals", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, utils.StoreError("find referrals", err)
	}
	defer cursor.Close(ctx)

	var referrals []*models.Referral
	for cursor.Next(ctx) {
		var referral models.Referral
		if err := cursor.Decode(&referral); err != nil {
			return nil, 0, utils.StoreError("decode referral", err)
		}
		referrals = append(referrals, &referral)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, utils.StoreError("iterate referrals", err)
	}

	return referrals, total, nil
}

// Recomputation

func (r *referralRepository) RecomputeStats(ctx context.Context, userID string, derive interfaces.DeriveStats) (*models.ReferralStats, error) {
	var stats *models.ReferralStats
	run := func(ctx context.Context) error {
		totals, err := r.ledgerTotals(ctx, userID)
		if err != nil {
			return err
		}
		derived, err := derive(totals)
		if err != nil {
			return err
		}
		stats, err = r.writeDerived(ctx, userID, derived)
		return err
	}

	var err error
	if r.db.TransactionsEnabled() {
		err = r.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			return run(sessCtx)
		})
	} else {
		err = run(ctx)
	}

	switch {
	case err == nil:
		return stats, nil
	case errors.Is(err, utils.ErrStatsNotFound), errors.Is(err, utils.ErrInvalidInput), utils.IsStoreError(err):
		return nil, err
	default:
		return nil, utils.StoreError("recompute referral stats", err)
	}
}

type statusTotals struct {
	Status   models.ReferralStatus `bson:"_id"`
	Count    int64                 `bson:"count"`
	Earnings float64               `bson:"earnings"`
}

func (r *referralRepository) ledgerTotals(ctx context.Context, userID string) (models.LedgerTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"referrer_id": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$status",
			"count":    bson.M{"$sum": 1},
			"earnings": bson.M{"$sum": bson.M{"$ifNull": bson.A{"$commission_earned", 0.0}}},
		}}},
	}

	var totals models.LedgerTotals
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return totals, utils.StoreError("aggregate referral ledger", err)
	}
	defer cursor.Close(ctx)

	var rows []statusTotals
	if err := cursor.All(ctx, &rows); err != nil {
		return totals, utils.StoreError("decode referral ledger", err)
	}

	for _, row := range rows {
		switch row.Status {
		case models.ReferralStatusPending:
			totals.PendingCount = row.Count
		case models.ReferralStatusCompleted:
			totals.CompletedCount = row.Count
			totals.CompletedEarnings = row.Earnings
		case models.ReferralStatusPaid:
			totals.PaidCount = row.Count
			totals.PaidEarnings = row.Earnings
		}
	}
	return totals, nil
}

// writeDerived only touches the record when a derived field moved, so a
// repeat recompute leaves it byte for byte unchanged.
func (r *referralRepository) writeDerived(ctx context.Context, userID string, d models.DerivedStats) (*models.ReferralStats, error) {
	fields := bson.M{
		"total_referrals":         d.TotalReferrals,
		"successful_referrals":    d.SuccessfulReferrals,
		"current_tier":            d.CurrentTier,
		"current_commission_rate": d.CurrentCommissionRate,
		"total_earnings":          d.TotalEarnings,
		"pending_earnings":        d.PendingEarnings,
		"paid_earnings":           d.PaidEarnings,
	}
	changed := bson.A{bson.M{"last_recomputed_at": nil}}
	for field, value := range fields {
		changed = append(changed, bson.M{field: bson.M{"$ne": value}})
	}

	now := time.Now()
	set := bson.M{"last_recomputed_at": now, "updated_at": now}
	for field, value := range fields {
		set[field] = value
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stats models.ReferralStats
	err := r.stats.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "$or": changed},
		bson.M{"$set": set},
		opts,
	).Decode(&stats)
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.StoreError("write referral stats", err)
	}

	err = r.stats.FindOne(ctx, bson.M{"user_id": userID}).Decode(&stats)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.ErrStatsNotFound
		}
		return nil, utils.StoreError("read referral stats", err)
	}
	return &stats, nil
}
