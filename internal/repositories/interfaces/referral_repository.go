package interfaces

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeriveStats maps ledger totals onto the derived stats fields.
type DeriveStats func(totals models.LedgerTotals) (models.DerivedStats, error)

type ReferralRepository interface {
	// CreateWithIncrement inserts a pending referral and bumps the owner's
	// total_referrals. Either both writes persist or neither does.
	CreateWithIncrement(ctx context.Context, referral *models.Referral) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Referral, error)
	GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Referral, error)

	// Status transitions. Each is a conditional update on the current status.
	Complete(ctx context.Context, id primitive.ObjectID, completion models.ReferralCompletion) (*models.Referral, error)
	MarkPaid(ctx context.Context, id primitive.ObjectID, payoutReference string, at time.Time) (*models.Referral, error)

	// Queries
	ListByReferrer(ctx context.Context, referrerID string, params *utils.PaginationParams) ([]*models.Referral, int64, error)
	ListByStatus(ctx context.Context, status models.ReferralStatus, params *utils.PaginationParams) ([]*models.Referral, int64, error)

	// RecomputeStats aggregates the referrer's ledger and writes the derived
	// fields from one consistent snapshot.
	RecomputeStats(ctx context.Context, userID string, derive DeriveStats) (*models.ReferralStats, error)
}
