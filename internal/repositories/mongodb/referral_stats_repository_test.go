package mongodb

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"
	"storefront/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestCreateStatsMapsDuplicateIndexes(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		index string
		want  error
	}{
		{"code collision", database.IndexStatsReferralCode, utils.ErrCodeTaken},
		{"second record for user", database.IndexStatsUserID, utils.ErrStatsExists},
	}
	for _, tc := range cases {
		mt.Run(tc.name, func(mt *mtest.T) {
			repo := NewReferralStatsRepository(mt.DB)
			mt.AddMockResponses(duplicateWriteResponse(database.CollectionReferralStats, tc.index))

			err := repo.Create(ctx, &models.ReferralStats{UserID: "alice", ReferralCode: "alice001"})
			assert.ErrorIs(mt, err, tc.want)
		})
	}

	mt.Run("code is stored upper case", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(insertedResponse())

		stats := &models.ReferralStats{UserID: "alice", ReferralCode: "alice001"}
		require.NoError(mt, repo.Create(ctx, stats))
		assert.Equal(mt, "ALICE001", stats.ReferralCode)

		code, ok := mt.GetStartedEvent().Command.Lookup("documents", "0", "referral_code").StringValueOK()
		require.True(mt, ok)
		assert.Equal(mt, "ALICE001", code)
	})
}

func TestCustomizeCodeOutcomes(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("renamed", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(modifiedResponse(bson.D{
			{Key: "user_id", Value: "alice"},
			{Key: "referral_code", Value: "DRIPQUEEN"},
			{Key: "code_customized", Value: true},
		}))

		stats, err := repo.CustomizeCode(ctx, "alice", "dripqueen", at)
		require.NoError(mt, err)
		assert.Equal(mt, "DRIPQUEEN", stats.ReferralCode)
		assert.True(mt, stats.CodeCustomized)

		code, ok := mt.GetStartedEvent().Command.Lookup("update", "$set", "referral_code").StringValueOK()
		require.True(mt, ok)
		assert.Equal(mt, "DRIPQUEEN", code)
	})

	mt.Run("code taken by another referrer", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(duplicateCommandResponse(database.CollectionReferralStats, database.IndexStatsReferralCode))

		_, err := repo.CustomizeCode(ctx, "alice", "BOB00001", at)
		assert.ErrorIs(mt, err, utils.ErrCodeTaken)
		assert.Equal(mt, []string{"findAndModify"}, commandNames(mt))
	})

	mt.Run("rename already spent", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(modifiedResponse(nil), countResponse(mt, database.CollectionReferralStats, 1))

		_, err := repo.CustomizeCode(ctx, "alice", "SECONDGO", at)
		assert.ErrorIs(mt, err, utils.ErrAlreadyCustomized)
		assert.Equal(mt, []string{"findAndModify", "aggregate"}, commandNames(mt))
	})

	mt.Run("no stats record", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(modifiedResponse(nil), countResponse(mt, database.CollectionReferralStats, 0))

		_, err := repo.CustomizeCode(ctx, "ghost", "GHOSTCODE", at)
		assert.ErrorIs(mt, err, utils.ErrStatsNotFound)
	})

	mt.Run("duplicate on another index is a store error", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(duplicateCommandResponse(database.CollectionReferralStats, "some_other_index"))

		_, err := repo.CustomizeCode(ctx, "alice", "ANYCODE1", at)
		assert.True(mt, utils.IsStoreError(err))
	})
}

func TestGetByCodeNormalizesCase(t *testing.T) {
	mt := newMockT(t)
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, database.CollectionReferralStats), mtest.FirstBatch,
			bson.D{{Key: "user_id", Value: "alice"}, {Key: "referral_code", Value: "ALICE001"}}))

		stats, err := repo.GetByCode(ctx, "alice001")
		require.NoError(mt, err)
		assert.Equal(mt, "alice", stats.UserID)

		code, ok := mt.GetStartedEvent().Command.Lookup("filter", "referral_code").StringValueOK()
		require.True(mt, ok)
		assert.Equal(mt, "ALICE001", code)
	})

	mt.Run("missing", func(mt *mtest.T) {
		repo := NewReferralStatsRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt, database.CollectionReferralStats), mtest.FirstBatch))

		_, err := repo.GetByCode(ctx, "NOPE0000")
		assert.ErrorIs(mt, err, utils.ErrStatsNotFound)
	})
}
