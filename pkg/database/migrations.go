package database

import (
	"context"
	"fmt"
	"time"

	"storefront/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	CollectionReferralStats  = "referral_stats"
	CollectionReferrals      = "referrals"
	CollectionReferralEvents = "referral_events"
	CollectionCoupons        = "coupons"
	collectionMigrations     = "migrations"
)

// Index names referenced by duplicate key checks.
const (
	IndexStatsUserID       = "user_id_unique"
	IndexStatsReferralCode = "referral_code_unique"
	IndexCheckoutSession   = "checkout_session_unique"
	IndexCouponCode        = "code_unique"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
	Down        func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
	logger     *logger.Logger
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
		logger:     log,
	}
}

func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log := m.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		})
		log.Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}

		log.Info("Migration completed")
	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version > currentVersion || migration.Version <= targetVersion {
			continue
		}

		m.logger.WithField("version", migration.Version).Info("Reverting migration")

		if err := migration.Down(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d rollback failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version-1); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(collectionMigrations).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := m.db.Collection(collectionMigrations).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create referral_stats collection with indexes",
			Up:          createReferralStatsIndexes,
			Down:        dropCollection(CollectionReferralStats),
		},
		{
			Version:     2,
			Description: "Create referrals collection with indexes",
			Up:          createReferralsIndexes,
			Down:        dropCollection(CollectionReferrals),
		},
		{
			Version:     3,
			Description: "Create referral_events collection with indexes",
			Up:          createReferralEventsIndexes,
			Down:        dropCollection(CollectionReferralEvents),
		},
		{
			Version:     4,
			Description: "Create coupons collection with indexes",
			Up:          createCouponsIndexes,
			Down:        dropCollection(CollectionCoupons),
		},
	}
}

func dropCollection(name string) func(context.Context, *mongo.Database) error {
	return func(ctx context.Context, db *mongo.Database) error {
		return db.Collection(name).Drop(ctx)
	}
}

func createReferralStatsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexStatsUserID),
		},
		{
			// Codes are stored uppercase, so this is case-insensitive uniqueness.
			Keys:    bson.D{{Key: "referral_code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexStatsReferralCode),
		},
		{
			Keys: bson.D{{Key: "successful_referrals", Value: -1}},
		},
	}

	_, err := db.Collection(CollectionReferralStats).Indexes().CreateMany(ctx, indexes)
	return err
}

func createReferralsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "checkout_session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName(IndexCheckoutSession),
		},
	}

	_, err := db.Collection(CollectionReferrals).Indexes().CreateMany(ctx, indexes)
	return err
}

func createReferralEventsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "referrer_id", Value: 1}, {Key: "event_type", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "referral_code", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := db.Collection(CollectionReferralEvents).Indexes().CreateMany(ctx, indexes)
	return err
}

func createCouponsIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexCouponCode),
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	_, err := db.Collection(CollectionCoupons).Indexes().CreateMany(ctx, indexes)
	return err
}
