package memory

import (
	"context"
	"sort"

	"storefront/internal/models"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type couponRepository struct {
	store *Store
}

func (r *couponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("coupons.Create"); err != nil {
		return err
	}

	code := normalizeCode(coupon.Code)
	if _, ok := s.coupons[code]; ok {
		return utils.ErrCouponExists
	}

	now := s.now()
	coupon.ID = primitive.NewObjectID()
	coupon.Code = code
	coupon.CreatedAt = now
	coupon.UpdatedAt = now

	stored := *coupon
	s.coupons[code] = &stored
	return nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("coupons.GetByCode"); err != nil {
		return nil, err
	}

	coupon, ok := s.coupons[normalizeCode(code)]
	if !ok {
		return nil, utils.ErrCouponNotFound
	}
	out := *coupon
	return &out, nil
}

func (r *couponRepository) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Coupon, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("coupons.List"); err != nil {
		return nil, 0, err
	}

	params = utils.NormalizePagination(params)
	all := make([]*models.Coupon, 0, len(s.coupons))
	for _, coupon := range s.coupons {
		out := *coupon
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Code < all[j].Code
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return paginate(all, params), int64(len(all)), nil
}

func (r *couponRepository) IncrementUsage(ctx context.Context, id primitive.ObjectID, usageLimit int) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("coupons.IncrementUsage"); err != nil {
		return false, err
	}

	for _, coupon := range s.coupons {
		if coupon.ID == id {
			if usageLimit > 0 && coupon.UsedCount >= usageLimit {
				return false, nil
			}
			coupon.UsedCount++
			coupon.UpdatedAt = s.now()
			return true, nil
		}
	}
	return false, utils.ErrCouponNotFound
}
