package workers

import (
	"context"

	"storefront/internal/services"
	"storefront/pkg/logger"
)

const RecomputeRetryJob = "recompute-retry"

// RecomputeRetryJobFunc drains the recompute retry queue once per run.
func RecomputeRetryJobFunc(retrier *services.RecomputeRetrier, log *logger.Logger) Job {
	return func(ctx context.Context) error {
		result, err := retrier.Drain(ctx)
		if err != nil {
			return err
		}
		if result.Processed > 0 {
			log.WithFields(map[string]interface{}{
				"processed": result.Processed,
				"succeeded": result.Succeeded,
				"retried":   result.Retried,
				"dropped":   result.Dropped,
			}).Info("Drained recompute retry queue")
		}
		return nil
	}
}
