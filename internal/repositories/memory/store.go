// Package memory holds in-process repository implementations backed by a
// single mutex-guarded store. They back the service tests and local runs
// without MongoDB.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Store struct {
	mu        sync.Mutex
	stats     map[string]*models.ReferralStats
	referrals map[primitive.ObjectID]*models.Referral
	events    []*models.ReferralAnalyticsEvent
	coupons   map[string]*models.Coupon
	failures  map[string]error
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		stats:     make(map[string]*models.ReferralStats),
		referrals: make(map[primitive.ObjectID]*models.Referral),
		coupons:   make(map[string]*models.Coupon),
		failures:  make(map[string]error),
		now:       time.Now,
	}
}

func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next call to op fail with a store error wrapping err.
// Ops are named "<repository>.<Method>", e.g. "referrals.RecomputeStats".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// fail must be called with mu held.
func (s *Store) fail(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return utils.StoreError(op, err)
}

func (s *Store) ReferralStats() interfaces.ReferralStatsRepository {
	return &statsRepository{store: s}
}

func (s *Store) Referrals() interfaces.ReferralRepository {
	return &referralRepository{store: s}
}

func (s *Store) Analytics() interfaces.ReferralAnalyticsRepository {
	return &analyticsRepository{store: s}
}

func (s *Store) Coupons() interfaces.CouponRepository {
	return &couponRepository{store: s}
}

func paginate[T any](items []T, params *utils.PaginationParams) []T {
	skip := params.GetSkip()
	if skip >= len(items) {
		return nil
	}
	end := skip + params.GetLimit()
	if end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func sortReferrals(referrals []*models.Referral, params *utils.PaginationParams) {
	key := func(r *models.Referral) float64 {
		switch params.Sort {
		case "completed_at":
			if r.CompletedAt != nil {
				return float64(r.CompletedAt.UnixNano())
			}
			return 0
		case "commission_earned":
			if r.CommissionEarned != nil {
				return *r.CommissionEarned
			}
			return 0
		case "order_total":
			if r.OrderTotal != nil {
				return *r.OrderTotal
			}
			return 0
		default:
			return float64(r.CreatedAt.UnixNano())
		}
	}

	desc := params.Order == "desc"
	sort.SliceStable(referrals, func(i, j int) bool {
		ki, kj := key(referrals[i]), key(referrals[j])
		if ki == kj {
			if desc {
				return referrals[i].ID.Hex() > referrals[j].ID.Hex()
			}
			return referrals[i].ID.Hex() < referrals[j].ID.Hex()
		}
		if desc {
			return ki > kj
		}
		return ki < kj
	})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
