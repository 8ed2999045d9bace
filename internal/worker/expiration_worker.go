package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vibecodefixers/help-request-service/internal/service"
)

// ExpirationWorker periodically sweeps overdue requests into EXPIRED. The
// sweep itself lives in the lifecycle service; this loop only triggers it.
type ExpirationWorker struct {
	requests *service.HelpRequestService
	interval time.Duration
	logger   *zap.Logger
}

// NewExpirationWorker constructs the worker.
func NewExpirationWorker(requests *service.HelpRequestService, interval time.Duration, logger *zap.Logger) *ExpirationWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirationWorker{requests: requests, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping on each tick.
func (w *ExpirationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := w.requests.CheckExpired(ctx)
			if err != nil {
				w.logger.Error("expiration sweep failed", zap.Error(err))
				continue
			}
			if count > 0 {
				w.logger.Info("expired overdue requests", zap.Int64("count", count))
			}
		}
	}
}
