package memory

import (
	"context"

	"storefront/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type analyticsRepository struct {
	store *Store
}

func (r *analyticsRepository) Create(ctx context.Context, event *models.ReferralAnalyticsEvent) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("analytics.Create"); err != nil {
		return err
	}

	event.ID = primitive.NewObjectID()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	stored := *event
	s.events = append(s.events, &stored)
	return nil
}

func (r *analyticsRepository) CountByType(ctx context.Context, referrerID string) (map[models.ReferralEventType]int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("analytics.CountByType"); err != nil {
		return nil, err
	}

	counts := make(map[models.ReferralEventType]int64)
	for _, event := range s.events {
		if event.ReferrerID == referrerID {
			counts[event.EventType]++
		}
	}
	return counts, nil
}
