package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newReferral() *models.Referral {
	return &models.Referral{
		ReferrerID:        "referrer",
		ReferralCode:      "FRIEND01",
		Source:            models.ReferralSourceCheckout,
		CheckoutSessionID: "cs_test_1",
	}
}

func TestCreateWithIncrement(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("counts then inserts", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(updatedResponse(1), insertedResponse())

		referral := newReferral()
		require.NoError(mt, repo.CreateWithIncrement(ctx, referral))
		assert.False(mt, referral.ID.IsZero())
		assert.Equal(mt, models.ReferralStatusPending, referral.Status)
		assert.Equal(mt, []string{"update", "insert"}, commandNames(mt))
	})

	mt.Run("unknown referrer", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(updatedResponse(0))

		err := repo.CreateWithIncrement(ctx, newReferral())
		assert.ErrorIs(mt, err, utils.ErrUnknownCode)
		assert.Equal(mt, []string{"update"}, commandNames(mt))
	})

	mt.Run("failed insert rolls back the count", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(
			updatedResponse(1),
			duplicateWriteResponse(database.CollectionReferrals, database.IndexCheckoutSession),
			updatedResponse(1),
		)

		err := repo.CreateWithIncrement(ctx, newReferral())
		assert.ErrorIs(mt, err, utils.ErrReferralExists)

		events := mt.GetAllStartedEvents()
		require.Len(mt, events, 3)
		assert.Equal(mt, "update", events[2].CommandName)

		forward, ok := events[0].Command.Lookup("updates", "0", "u", "$inc", "total_referrals").AsInt64OK()
		require.True(mt, ok)
		assert.Equal(mt, int64(1), forward)
		undo, ok := events[2].Command.Lookup("updates", "0", "u", "$inc", "total_referrals").AsInt64OK()
		require.True(mt, ok)
		assert.Equal(mt, int64(-1), undo)
	})

	mt.Run("insert failure is a store error", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(
			updatedResponse(1),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "document failed validation"}),
			updatedResponse(1),
		)

		err := repo.CreateWithIncrement(ctx, newReferral())
		assert.True(mt, utils.IsStoreError(err))
		assert.Equal(mt, []string{"update", "insert", "update"}, commandNames(mt))
	})
}

func TestStatusTransitions(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()
	id := primitive.NewObjectID()
	completion := models.ReferralCompletion{
		OrderID:          "order-1",
		OrderTotal:       200,
		CommissionRate:   10,
		CommissionEarned: 20,
		CompletedAt:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mt.Run("pending referral completes", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(modifiedResponse(bson.D{
			{Key: "_id", Value: id},
			{Key: "referrer_id", Value: "referrer"},
			{Key: "status", Value: string(models.ReferralStatusCompleted)},
			{Key: "commission_earned", Value: 20.0},
		}))

		referral, err := repo.Complete(ctx, id, completion)
		require.NoError(mt, err)
		assert.Equal(mt, models.ReferralStatusCompleted, referral.Status)
		assert.Equal(mt, 20.0, *referral.CommissionEarned)

		status, ok := mt.GetStartedEvent().Command.Lookup("query", "status").StringValueOK()
		require.True(mt, ok)
		assert.Equal(mt, string(models.ReferralStatusPending), status)
	})

	mt.Run("second completion conflicts", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(modifiedResponse(nil), countResponse(mt, database.CollectionReferrals, 1))

		_, err := repo.Complete(ctx, id, completion)
		assert.ErrorIs(mt, err, utils.ErrAlreadyCompleted)
		assert.Equal(mt, []string{"findAndModify", "aggregate"}, commandNames(mt))
	})

	mt.Run("paying a pending referral is an invalid transition", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(modifiedResponse(nil), countResponse(mt, database.CollectionReferrals, 1))

		_, err := repo.MarkPaid(ctx, id, "payout-1", completion.CompletedAt)
		assert.ErrorIs(mt, err, utils.ErrInvalidTransition)
	})

	mt.Run("missing referral", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(modifiedResponse(nil), countResponse(mt, database.CollectionReferrals, 0))

		_, err := repo.MarkPaid(ctx, id, "payout-1", completion.CompletedAt)
		assert.ErrorIs(mt, err, utils.ErrReferralNotFound)
	})
}

func TestRecomputeStatsAggregatesLedger(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()
	recomputedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ledger := func(mt *mtest.T) bson.D {
		return mtest.CreateCursorResponse(0, ns(mt, database.CollectionReferrals), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "pending"}, {Key: "count", Value: int64(2)}, {Key: "earnings", Value: 0.0}},
			bson.D{{Key: "_id", Value: "completed"}, {Key: "count", Value: int64(3)}, {Key: "earnings", Value: 12.5}},
			bson.D{{Key: "_id", Value: "paid"}, {Key: "count", Value: int64(1)}, {Key: "earnings", Value: 10.0}},
			bson.D{{Key: "_id", Value: "archived"}, {Key: "count", Value: int64(9)}, {Key: "earnings", Value: 99.0}},
		)
	}
	derived := models.DerivedStats{
		TotalReferrals:        6,
		SuccessfulReferrals:   4,
		CurrentTier:           1,
		CurrentCommissionRate: 5,
		TotalEarnings:         22.5,
		PendingEarnings:       12.5,
		PaidEarnings:          10,
	}
	storedStats := bson.D{
		{Key: "user_id", Value: "referrer"},
		{Key: "referral_code", Value: "FRIEND01"},
		{Key: "total_referrals", Value: int64(6)},
		{Key: "successful_referrals", Value: int64(4)},
		{Key: "pending_earnings", Value: 12.5},
		{Key: "last_recomputed_at", Value: recomputedAt},
	}

	mt.Run("writes derived fields", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(ledger(mt), modifiedResponse(storedStats))

		var seen models.LedgerTotals
		stats, err := repo.RecomputeStats(ctx, "referrer", func(totals models.LedgerTotals) (models.DerivedStats, error) {
			seen = totals
			return derived, nil
		})
		require.NoError(mt, err)

		assert.Equal(mt, models.LedgerTotals{
			PendingCount:      2,
			CompletedCount:    3,
			PaidCount:         1,
			CompletedEarnings: 12.5,
			PaidEarnings:      10,
		}, seen)
		assert.Equal(mt, int64(6), stats.TotalReferrals)
		assert.Equal(mt, 12.5, stats.PendingEarnings)
		assert.Equal(mt, []string{"aggregate", "findAndModify"}, commandNames(mt))
	})

	mt.Run("unchanged ledger reads the record back", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(
			ledger(mt),
			modifiedResponse(nil),
			mtest.CreateCursorResponse(0, ns(mt, database.CollectionReferralStats), mtest.FirstBatch, storedStats),
		)

		stats, err := repo.RecomputeStats(ctx, "referrer", func(models.LedgerTotals) (models.DerivedStats, error) {
			return derived, nil
		})
		require.NoError(mt, err)
		assert.Equal(mt, recomputedAt, stats.LastRecomputedAt.UTC())
		assert.Equal(mt, []string{"aggregate", "findAndModify", "find"}, commandNames(mt))
	})

	mt.Run("missing stats record", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(
			ledger(mt),
			modifiedResponse(nil),
			mtest.CreateCursorResponse(0, ns(mt, database.CollectionReferralStats), mtest.FirstBatch),
		)

		_, err := repo.RecomputeStats(ctx, "nobody", func(models.LedgerTotals) (models.DerivedStats, error) {
			return derived, nil
		})
		assert.ErrorIs(mt, err, utils.ErrStatsNotFound)
	})

	mt.Run("derive failure is passed through", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(ledger(mt))

		_, err := repo.RecomputeStats(ctx, "referrer", func(models.LedgerTotals) (models.DerivedStats, error) {
			return models.DerivedStats{}, utils.InvalidInput("no tier covers %d", -1)
		})
		assert.ErrorIs(mt, err, utils.ErrInvalidInput)
		assert.Equal(mt, []string{"aggregate"}, commandNames(mt))
	})

	mt.Run("aggregate failure is a store error", func(mt *mtest.T) {
		repo := NewReferralRepository(standalone(mt), nil)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Name: "BadValue", Message: "bad pipeline"}))

		_, err := repo.RecomputeStats(ctx, "referrer", func(models.LedgerTotals) (models.DerivedStats, error) {
			return derived, errors.New("not reached")
		})
		assert.True(mt, utils.IsStoreError(err))
	})
}
