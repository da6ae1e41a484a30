package interfaces

import (
	"context"
	"time"

	"storefront/internal/models"
)

type ReferralStatsRepository interface {
	// Create inserts a fresh stats record. A taken code fails with
	// utils.ErrCodeTaken, an existing record for the user with
	// utils.ErrStatsExists.
	Create(ctx context.Context, stats *models.ReferralStats) error
	GetByUserID(ctx context.Context, userID string) (*models.ReferralStats, error)
	GetByCode(ctx context.Context, code string) (*models.ReferralStats, error)

	// CustomizeCode renames the code once. The store enforces both the
	// single use and the uniqueness of the new code.
	CustomizeCode(ctx context.Context, userID, code string, at time.Time) (*models.ReferralStats, error)

	// Analytics
	ListTop(ctx context.Context, limit int) ([]*models.ReferralStats, error)
}
