package ratelimit

import (
	"context"
	"time"

	"gramload.app/cloud/internal/logger"
	"gramload.app/cloud/internal/metrics"
)

// StartSweeper runs SweepExpired on a fixed interval until the context is
// canceled, bounding the memory held by expired windows.
func StartSweeper(ctx context.Context, limiter Limiter, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := limiter.SweepExpired(ctx)
				if err != nil {
					logger.Error("Rate limit sweep failed", map[string]interface{}{
						"error": err.Error(),
					})
					continue
				}
				if removed > 0 {
					metrics.LimiterRecordsSwept.Add(float64(removed))
					logger.Debug("Rate limit sweep removed expired records", map[string]interface{}{
						"removed": removed,
					})
				}
				if counted, ok := limiter.(DecisionCounter); ok {
					allowed, denied, swept := counted.Stats()
					logger.Debug("Rate limiter decision counters", map[string]interface{}{
						"allowed": allowed,
						"denied":  denied,
						"swept":   swept,
					})
				}
			}
		}
	}()
}
