package workers

import (
	"context"

	"storefront/pkg/logger"
)

const RateLimiterCleanupJob = "rate-limiter-cleanup"

// Sweeper drops idle in-memory state and reports how much it removed.
type Sweeper interface {
	Cleanup() int
}

func RateLimiterCleanupJobFunc(sweeper Sweeper, log *logger.Logger) Job {
	return func(ctx context.Context) error {
		if removed := sweeper.Cleanup(); removed > 0 {
			log.WithField("removed", removed).Debug("Dropped idle rate limiters")
		}
		return nil
	}
}
