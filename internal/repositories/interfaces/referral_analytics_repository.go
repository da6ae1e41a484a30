package interfaces

import (
	"context"

	"storefront/internal/models"
)

type ReferralAnalyticsRepository interface {
	Create(ctx context.Context, event *models.ReferralAnalyticsEvent) error
	CountByType(ctx context.Context, referrerID string) (map[models.ReferralEventType]int64, error)
}
