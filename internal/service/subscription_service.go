package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vibecodefixers/help-request-service/internal/config"
	"github.com/vibecodefixers/help-request-service/internal/domain"
	"github.com/vibecodefixers/help-request-service/internal/repository"
)

// SubscriptionService implements the SubscriptionGateway against the
// subscriptions table and Redis usage counters.
type SubscriptionService struct {
	subscriptions repository.SubscriptionRepository
	usage         repository.UsageStore
	quotas        config.SubscriptionConfig
	logger        *zap.Logger
}

// NewSubscriptionService constructs the gateway.
func NewSubscriptionService(subscriptions repository.SubscriptionRepository, usage repository.UsageStore, quotas config.SubscriptionConfig, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		subscriptions: subscriptions,
		usage:         usage,
		quotas:        quotas,
		logger:        logger,
	}
}

// GetSubscription returns the user's plan; users without a row are on the
// free tier.
func (s *SubscriptionService) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	subscription, err := s.subscriptions.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.Subscription{UserID: userID, Tier: domain.TierFree}, nil
		}
		return nil, err
	}
	return subscription, nil
}

// CheckUsageLimits reports whether the user may open another question in the
// current period. A zero quota means unlimited.
func (s *SubscriptionService) CheckUsageLimits(ctx context.Context, userID string) (bool, error) {
	subscription, err := s.GetSubscription(ctx, userID)
	if err != nil {
		return false, err
	}
	quota := s.quotaFor(subscription.Tier)
	if quota <= 0 {
		return true, nil
	}
	used, err := s.usage.Current(ctx, userID, domain.UsageKindQuestion, currentPeriod())
	if err != nil {
		return false, err
	}
	return used < int64(quota), nil
}

// RecordUsage counts one metered operation. A failed increment is queued for
// retry instead of being dropped, since the caller's state change is already
// durable by the time this runs.
func (s *SubscriptionService) RecordUsage(ctx context.Context, userID string, kind domain.UsageKind) error {
	period := currentPeriod()
	if _, err := s.usage.Increment(ctx, userID, kind, period); err != nil {
		payload, marshalErr := json.Marshal(usageRetryEntry{UserID: userID, Kind: kind, Period: period})
		if marshalErr != nil {
			return err
		}
		if enqueueErr := s.usage.EnqueueRetry(ctx, payload); enqueueErr != nil {
			return err
		}
		s.logger.Warn("usage increment queued for retry",
			zap.String("user_id", userID), zap.String("kind", string(kind)), zap.Error(err))
	}
	return nil
}

// RetryPending drains the retry queue, re-applying failed increments. An
// entry that fails again is pushed back and the drain stops.
func (s *SubscriptionService) RetryPending(ctx context.Context) (int, error) {
	retried := 0
	for {
		payload, err := s.usage.DequeueRetry(ctx)
		if err != nil {
			if errors.Is(err, repository.ErrQueueEmpty) {
				return retried, nil
			}
			return retried, err
		}
		var entry usageRetryEntry
		if err := json.Unmarshal(payload, &entry); err != nil {
			s.logger.Warn("dropping malformed usage retry entry", zap.Error(err))
			continue
		}
		if _, err := s.usage.Increment(ctx, entry.UserID, entry.Kind, entry.Period); err != nil {
			if enqueueErr := s.usage.EnqueueRetry(ctx, payload); enqueueErr != nil {
				s.logger.Error("usage retry entry lost", zap.Error(enqueueErr))
			}
			return retried, err
		}
		retried++
	}
}

// SetTier upserts the user's plan.
func (s *SubscriptionService) SetTier(ctx context.Context, userID string, tier domain.SubscriptionTier) (*domain.Subscription, error) {
	subscription := &domain.Subscription{UserID: userID, Tier: tier}
	if err := s.subscriptions.Upsert(ctx, subscription); err != nil {
		return nil, err
	}
	return subscription, nil
}

type usageRetryEntry struct {
	UserID string           `json:"user_id"`
	Kind   domain.UsageKind `json:"kind"`
	Period string           `json:"period"`
}

func (s *SubscriptionService) quotaFor(tier domain.SubscriptionTier) int {
	switch tier {
	case domain.TierFree:
		return s.quotas.FreeMonthlyQuestions
	case domain.TierPro:
		return s.quotas.ProMonthlyQuestions
	case domain.TierVIP:
		return s.quotas.VIPMonthlyQuestions
	case domain.TierEnterprise:
		return s.quotas.EnterpriseMonthlyQuestions
	default:
		return s.quotas.FreeMonthlyQuestions
	}
}

func currentPeriod() string {
	return time.Now().UTC().Format("2006-01")
}
