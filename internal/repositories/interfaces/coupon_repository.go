package interfaces

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CouponRepository interface {
	Create(ctx context.Context, coupon *models.Coupon) error
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.Coupon, int64, error)
	// IncrementUsage bumps used_count only while it is below usageLimit
	// (when positive) and reports whether the redemption was counted.
	IncrementUsage(ctx context.Context, id primitive.ObjectID, usageLimit int) (bool, error)
}
