package memory

import (
	"context"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories/interfaces"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type referralRepository struct {
	store *Store
}

func (r *referralRepository) CreateWithIncrement(ctx context.Context, referral *models.Referral) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.CreateWithIncrement"); err != nil {
		return err
	}

	stats, ok := s.stats[referral.ReferrerID]
	if !ok {
		return utils.ErrUnknownCode
	}
	if referral.CheckoutSessionID != "" {
		for _, existing := range s.referrals {
			if existing.CheckoutSessionID == referral.CheckoutSessionID {
				return utils.ErrReferralExists
			}
		}
	}

	now := s.now()
	referral.ID = primitive.NewObjectID()
	referral.Status = models.ReferralStatusPending
	referral.CreatedAt = now
	referral.UpdatedAt = now

	stored := *referral
	s.referrals[referral.ID] = &stored
	stats.TotalReferrals++
	stats.UpdatedAt = now
	return nil
}

func (r *referralRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Referral, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.GetByID"); err != nil {
		return nil, err
	}

	referral, ok := s.referrals[id]
	if !ok {
		return nil, utils.ErrReferralNotFound
	}
	out := *referral
	return &out, nil
}

func (r *referralRepository) GetByCheckoutSession(ctx context.Context, sessionID string) (*models.Referral, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.GetByCheckoutSession"); err != nil {
		return nil, err
	}

	for _, referral := range s.referrals {
		if sessionID != "" && referral.CheckoutSessionID == sessionID {
			out := *referral
			return &out, nil
		}
	}
	return nil, utils.ErrReferralNotFound
}

func (r *referralRepository) Complete(ctx context.Context, id primitive.ObjectID, c models.ReferralCompletion) (*models.Referral, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.Complete"); err != nil {
		return nil, err
	}

	referral, ok := s.referrals[id]
	if !ok {
		return nil, utils.ErrReferralNotFound
	}
	if referral.Status != models.ReferralStatusPending {
		return nil, utils.ErrAlreadyCompleted
	}

	orderID, total, rate, earned, at := c.OrderID, c.OrderTotal, c.CommissionRate, c.CommissionEarned, c.CompletedAt
	referral.Status = models.ReferralStatusCompleted
	referral.OrderID = &orderID
	referral.OrderTotal = &total
	referral.CommissionRate = &rate
	referral.CommissionEarned = &earned
	referral.CompletedAt = &at
	referral.UpdatedAt = at

	out := *referral
	return &out, nil
}

func (r *referralRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, payoutReference string, at time.Time) (*models.Referral, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.MarkPaid"); err != nil {
		return nil, err
	}

	referral, ok := s.referrals[id]
	if !ok {
		return nil, utils.ErrReferralNotFound
	}
	if !referral.Status.CanTransitionTo(models.ReferralStatusPaid) {
		return nil, utils.ErrInvalidTransition
	}

	ref := payoutReference
	referral.Status = models.ReferralStatusPaid
	referral.PayoutReference = &ref
	referral.PaidAt = &at
	referral.UpdatedAt = at

	out := *referral
	return &out, nil
}

func (r *referralRepository) ListByReferrer(ctx context.Context, referrerID string, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	return r.list("referrals.ListByReferrer", params, func(ref *models.Referral) bool {
		return ref.ReferrerID == referrerID
	})
}

func (r *referralRepository) ListByStatus(ctx context.Context, status models.ReferralStatus, params *utils.PaginationParams) ([]*models.Referral, int64, error) {
	return r.list("referrals.ListByStatus", params, func(ref *models.Referral) bool {
		return ref.Status == status
	})
}

func (r *referralRepository) list(op string, params *utils.PaginationParams, match func(*models.Referral) bool) ([]*models.Referral, int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail(op); err != nil {
		return nil, 0, err
	}

	params = utils.NormalizePagination(params)
	var matched []*models.Referral
	for _, referral := range s.referrals {
		if match(referral) {
			out := *referral
			matched = append(matched, &out)
		}
	}

	sortReferrals(matched, params)
	return paginate(matched, params), int64(len(matched)), nil
}

// RecomputeStats holds the store lock across the aggregation and the write,
// which gives the same snapshot guarantee as the Mongo transaction.
func (r *referralRepository) RecomputeStats(ctx context.Context, userID string, derive interfaces.DeriveStats) (*models.ReferralStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("referrals.RecomputeStats"); err != nil {
		return nil, err
	}

	stats, ok := s.stats[userID]
	if !ok {
		return nil, utils.ErrStatsNotFound
	}

	var totals models.LedgerTotals
	for _, referral := range s.referrals {
		if referral.ReferrerID != userID {
			continue
		}
		var earned float64
		if referral.CommissionEarned != nil {
			earned = *referral.CommissionEarned
		}
		switch referral.Status {
		case models.ReferralStatusPending:
			totals.PendingCount++
		case models.ReferralStatusCompleted:
			totals.CompletedCount++
			totals.CompletedEarnings += earned
		case models.ReferralStatusPaid:
			totals.PaidCount++
			totals.PaidEarnings += earned
		}
	}

	derived, err := derive(totals)
	if err != nil {
		return nil, err
	}

	if stats.UpToDate(derived) {
		out := *stats
		return &out, nil
	}

	now := s.now()
	stats.Apply(derived)
	stats.LastRecomputedAt = &now
	stats.UpdatedAt = now

	out := *stats
	return &out, nil
}
