package memory

import (
	"context"
	"sort"
	"time"

	"storefront/internal/models"
	"storefront/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type statsRepository struct {
	store *Store
}

func (r *statsRepository) Create(ctx context.Context, stats *models.ReferralStats) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("stats.Create"); err != nil {
		return err
	}

	code := normalizeCode(stats.ReferralCode)
	if s.codeOwner(code) != "" {
		return utils.ErrCodeTaken
	}
	if _, ok := s.stats[stats.UserID]; ok {
		return utils.ErrStatsExists
	}

	now := s.now()
	stats.ID = primitive.NewObjectID()
	stats.ReferralCode = code
	stats.CreatedAt = now
	stats.UpdatedAt = now

	stored := *stats
	s.stats[stats.UserID] = &stored
	return nil
}

func (r *statsRepository) GetByUserID(ctx context.Context, userID string) (*models.ReferralStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("stats.GetByUserID"); err != nil {
		return nil, err
	}

	stats, ok := s.stats[userID]
	if !ok {
		return nil, utils.ErrStatsNotFound
	}
	out := *stats
	return &out, nil
}

func (r *statsRepository) GetByCode(ctx context.Context, code string) (*models.ReferralStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("stats.GetByCode"); err != nil {
		return nil, err
	}

	owner := s.codeOwner(normalizeCode(code))
	if owner == "" {
		return nil, utils.ErrStatsNotFound
	}
	out := *s.stats[owner]
	return &out, nil
}

func (r *statsRepository) CustomizeCode(ctx context.Context, userID, code string, at time.Time) (*models.ReferralStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("stats.CustomizeCode"); err != nil {
		return nil, err
	}

	stats, ok := s.stats[userID]
	if !ok {
		return nil, utils.ErrStatsNotFound
	}
	if stats.CodeCustomized {
		return nil, utils.ErrAlreadyCustomized
	}

	code = normalizeCode(code)
	if owner := s.codeOwner(code); owner != "" && owner != userID {
		return nil, utils.ErrCodeTaken
	}

	stats.ReferralCode = code
	stats.CodeCustomized = true
	stats.CodeCustomizedAt = &at
	stats.UpdatedAt = at

	out := *stats
	return &out, nil
}

func (r *statsRepository) ListTop(ctx context.Context, limit int) ([]*models.ReferralStats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("stats.ListTop"); err != nil {
		return nil, err
	}

	all := make([]*models.ReferralStats, 0, len(s.stats))
	for _, stats := range s.stats {
		out := *stats
		all = append(all, &out)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].SuccessfulReferrals != all[j].SuccessfulReferrals {
			return all[i].SuccessfulReferrals > all[j].SuccessfulReferrals
		}
		if all[i].TotalEarnings != all[j].TotalEarnings {
			return all[i].TotalEarnings > all[j].TotalEarnings
		}
		return all[i].ID.Hex() < all[j].ID.Hex()
	})

	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// codeOwner must be called with mu held.
func (s *Store) codeOwner(code string) string {
	for userID, stats := range s.stats {
		if stats.ReferralCode == code {
			return userID
		}
	}
	return ""
}
