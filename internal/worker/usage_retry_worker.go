package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vibecodefixers/help-request-service/internal/service"
)

// UsageRetryWorker re-applies usage increments that failed after their
// request had already been persisted.
type UsageRetryWorker struct {
	subscriptions *service.SubscriptionService
	interval      time.Duration
	logger        *zap.Logger
}

// NewUsageRetryWorker constructs the worker.
func NewUsageRetryWorker(subscriptions *service.SubscriptionService, interval time.Duration, logger *zap.Logger) *UsageRetryWorker {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &UsageRetryWorker{subscriptions: subscriptions, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, draining the retry queue on each tick.
func (w *UsageRetryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			retried, err := w.subscriptions.RetryPending(ctx)
			if err != nil {
				w.logger.Warn("usage retry drain failed", zap.Error(err))
			}
			if retried > 0 {
				w.logger.Info("re-applied usage increments", zap.Int("count", retried))
			}
		}
	}
}
